package remote

import (
	"context"
	"fmt"

	"staffsync/internal/config"
	"staffsync/internal/staff"
)

// Service is a remote store that can also report whether it is reachable.
type Service interface {
	staff.RemoteService
	Ping(ctx context.Context) error
}

// NewRemoteFromConfig creates a remote service based on the remote config type.
func NewRemoteFromConfig(cfg config.RemoteConfig, clock staff.Clock, idgen staff.IDGenerator) (Service, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryRemote(clock, idgen), nil
	case "postgrest":
		if cfg.URL == "" {
			return nil, fmt.Errorf("postgrest remote requires url to be set")
		}
		timeout, err := cfg.TimeoutDuration()
		if err != nil {
			return nil, err
		}
		r, err := NewPostgRESTRemote(cfg.URL, cfg.TableName(), cfg.APIKey, timeout)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown remote type: %s", cfg.Type)
	}
}
