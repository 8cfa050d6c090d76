package app

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"staffsync/internal/model"
)

// BundleVersion is the export format version written by Export.
const BundleVersion = 1

// Bundle is the plaintext content of an encrypted export: the cache snapshot
// and the pending action log of one client.
type Bundle struct {
	Version    int                   `json:"version"`
	ClientID   string                `json:"client_id"`
	ExportedAt time.Time             `json:"exported_at"`
	Records    []model.Record        `json:"records"`
	Pending    []model.PendingAction `json:"pending"`
}

func encodeBundle(w io.Writer, b *Bundle) error {
	if b.Records == nil {
		b.Records = []model.Record{}
	}
	if b.Pending == nil {
		b.Pending = []model.PendingAction{}
	}
	if err := json.NewEncoder(w).Encode(b); err != nil {
		return fmt.Errorf("encoding bundle: %w", err)
	}
	return nil
}

func decodeBundle(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}
	if b.Version != BundleVersion {
		return nil, fmt.Errorf("unsupported bundle version %d (want %d)", b.Version, BundleVersion)
	}
	for i, a := range b.Pending {
		switch a.Kind {
		case model.ActionCreate, model.ActionUpdate:
			if a.Data == nil {
				return nil, fmt.Errorf("pending action %d (%s) has no payload", i, a.Kind)
			}
		case model.ActionDelete:
		default:
			return nil, fmt.Errorf("pending action %d has unknown kind %q", i, a.Kind)
		}
	}
	return &b, nil
}
