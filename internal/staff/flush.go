package staff

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"staffsync/internal/model"
)

// FlushResult summarizes a completed reconciliation pass.
type FlushResult struct {
	// Replayed is the number of pending actions confirmed by the remote.
	Replayed int
	// Remapped maps client ids of records created offline to the ids the
	// remote assigned when the create was replayed.
	Remapped map[string]string
}

// Flush replays the action log against the remote service.
//
// Actions are sent in FIFO order. If every call succeeds the log is cleared
// and the cache is refreshed from the remote list. If any call fails the pass
// stops, the log is left untouched and a *FlushError is returned; nothing
// retries automatically. An empty log is a no-op with no remote calls.
//
// Concurrent calls share a single pass, so the log is never drained twice.
// If the refresh after a successful replay fails, the result is returned
// together with the refresh error.
func (r *Repository) Flush(ctx context.Context) (*FlushResult, error) {
	v, err, shared := r.flights.Do("flush", func() (any, error) {
		return r.flush(ctx)
	})
	if shared {
		r.logger.Debug("joined in-progress flush")
	}
	res, _ := v.(*FlushResult)
	return res, err
}

func (r *Repository) flush(ctx context.Context) (*FlushResult, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if !r.conn.Online() {
		return nil, ErrOffline
	}

	actions, err := r.log.Drain()
	if err != nil {
		return nil, fmt.Errorf("draining action log: %w", err)
	}
	if len(actions) == 0 {
		return &FlushResult{Remapped: map[string]string{}}, nil
	}

	r.logger.Info("flushing pending actions", "count", len(actions))

	r.mu.RLock()
	rp := newReplay(r.remote, r.aliases)
	r.mu.RUnlock()

	if err := rp.run(context.WithoutCancel(ctx), actions); err != nil {
		r.logger.Error("flush aborted, action log kept", "applied", rp.applied, "error", err)
		r.setLastError(err)
		return nil, err
	}

	if err := r.log.Clear(); err != nil {
		return nil, fmt.Errorf("clearing action log: %w", err)
	}

	r.mu.Lock()
	maps.Copy(r.aliases, rp.created)
	r.mu.Unlock()

	res := &FlushResult{Replayed: len(actions), Remapped: rp.created}
	r.logger.Info("pending actions replayed", "count", res.Replayed, "remapped", len(res.Remapped))

	records, err := r.remote.List(ctx)
	if err != nil {
		r.setLastError(err)
		return res, fmt.Errorf("refreshing after flush: %w", err)
	}
	if err := r.commit(func([]model.Record) []model.Record { return records }); err != nil {
		return res, fmt.Errorf("refreshing after flush: %w", err)
	}

	r.mu.Lock()
	r.lastErr = ""
	r.lastSync = r.clock.Now()
	r.mu.Unlock()

	return res, nil
}

// replay executes drained actions one by one. It only collects results;
// committing (clearing the log) is left to the caller once run succeeds.
type replay struct {
	remote  RemoteService
	known   map[string]string // aliases from earlier passes
	created map[string]string // client id -> server id, learned in this pass
	applied int
}

func newReplay(remote RemoteService, known map[string]string) *replay {
	return &replay{
		remote:  remote,
		known:   maps.Clone(known),
		created: make(map[string]string),
	}
}

// run applies actions in order and stops at the first failure.
func (rp *replay) run(ctx context.Context, actions []model.PendingAction) error {
	for i, a := range actions {
		if err := rp.apply(ctx, a); err != nil {
			return &FlushError{Index: i, Action: a, Err: err}
		}
		rp.applied++
	}
	return nil
}

func (rp *replay) apply(ctx context.Context, a model.PendingAction) error {
	switch a.Kind {
	case model.ActionCreate:
		if a.Data == nil {
			return errors.New("create action has no payload")
		}
		rec, err := rp.remote.Insert(ctx, *a.Data)
		if err != nil {
			return err
		}
		if a.RecordID != "" {
			rp.created[a.RecordID] = rec.ID
		}
		return nil

	case model.ActionUpdate:
		if a.Data == nil {
			return errors.New("update action has no payload")
		}
		_, err := rp.remote.Patch(ctx, rp.resolve(a.RecordID), *a.Data)
		return err

	case model.ActionDelete:
		return rp.remote.Delete(ctx, rp.resolve(a.RecordID))

	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
}

// resolve rewrites client ids to server ids learned in this or earlier passes.
func (rp *replay) resolve(id string) string {
	if serverID, ok := rp.created[id]; ok {
		return serverID
	}
	if serverID, ok := rp.known[id]; ok {
		return serverID
	}
	return id
}

// Run watches the connectivity signal and flushes on every offline to online
// transition while actions are pending. A pass is also attempted at start if
// already online. Flush failures are logged and wait for the next trigger.
// Run returns when ctx is done or the subscription is closed.
func (r *Repository) Run(ctx context.Context) error {
	updates, cancel := r.conn.Subscribe()
	defer cancel()

	online := r.conn.Online()
	if online {
		r.FlushIfPending(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state, ok := <-updates:
			if !ok {
				return nil
			}
			if state && !online {
				r.logger.Info("connectivity restored")
				r.FlushIfPending(ctx)
			} else if !state && online {
				r.logger.Info("connectivity lost")
			}
			online = state
		}
	}
}

// FlushIfPending runs a flush when actions are queued and logs a failure
// instead of returning it. Callers use it when connectivity was observed to
// come up outside of Run.
func (r *Repository) FlushIfPending(ctx context.Context) {
	n, err := r.log.Len()
	if err != nil {
		r.logger.Error("checking action log", "error", err)
		return
	}
	if n == 0 {
		return
	}
	if _, err := r.Flush(ctx); err != nil {
		r.logger.Error("flush failed", "error", err)
	}
}
