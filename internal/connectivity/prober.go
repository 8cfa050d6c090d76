package connectivity

import (
	"context"
	"time"

	"staffsync/internal/staff"
)

// Pinger is anything that can cheaply check that the remote is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober drives a Monitor from periodic Ping calls.
type Prober struct {
	pinger   Pinger
	monitor  *Monitor
	interval time.Duration
	logger   staff.Logger
}

// NewProber creates a prober that pings every interval. Each ping is bounded
// by the interval as well.
func NewProber(pinger Pinger, monitor *Monitor, interval time.Duration, logger staff.Logger) *Prober {
	return &Prober{
		pinger:   pinger,
		monitor:  monitor,
		interval: interval,
		logger:   logger,
	}
}

// Check pings once, updates the monitor and returns the observed state.
func (p *Prober) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	err := p.pinger.Ping(ctx)
	online := err == nil
	if p.monitor.Set(online) {
		if online {
			p.logger.Info("remote reachable")
		} else {
			p.logger.Warn("remote unreachable", "error", err)
		}
	}
	return online
}

// Run checks immediately and then on every tick until ctx is done.
func (p *Prober) Run(ctx context.Context) error {
	p.Check(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}
