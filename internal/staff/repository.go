package staff

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"staffsync/internal/model"
)

// Repository is the public face of the synchronization layer. It sends reads
// and writes to the remote service while online and to the cache and action
// log while offline, and replays the log once connectivity returns.
type Repository struct {
	remote RemoteService
	cache  Cache
	log    ActionLog
	conn   Connectivity
	logger Logger
	clock  Clock
	idgen  IDGenerator

	// opMu serializes mutations and flush passes. It is always taken before mu.
	opMu sync.Mutex

	mu       sync.RWMutex
	records  []model.Record    // in-memory view; always equal to what the cache last accepted
	aliases  map[string]string // client id -> server id, learned from flushes
	lastErr  string
	lastSync time.Time

	flights singleflight.Group
}

// NewRepository creates a Repository and loads the in-memory view from the cache.
func NewRepository(remote RemoteService, cache Cache, log ActionLog, conn Connectivity, logger Logger, clock Clock, idgen IDGenerator) (*Repository, error) {
	records, err := cache.Read()
	if err != nil {
		return nil, fmt.Errorf("loading cache: %w", err)
	}

	return &Repository{
		remote:  remote,
		cache:   cache,
		log:     log,
		conn:    conn,
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
		records: records,
		aliases: make(map[string]string),
	}, nil
}

// List returns all known records.
// Online, the remote list (newest first) replaces the cache. If the remote
// call fails the cached records are returned instead and the failure is
// recorded in Status. Offline, the cache is returned as-is.
func (r *Repository) List(ctx context.Context) ([]model.Record, error) {
	if !r.conn.Online() {
		return r.readCache()
	}

	records, err := r.remote.List(ctx)
	if err != nil {
		r.logger.Warn("remote list failed, serving cache", "error", err)
		r.setLastError(err)
		return r.readCache()
	}

	if err := r.commit(func([]model.Record) []model.Record { return records }); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.lastErr = ""
	r.mu.Unlock()

	r.logger.Debug("records refreshed from remote", "count", len(records))
	return slices.Clone(records), nil
}

// Create adds a record. Offline, the record gets a client id (see
// model.IsLocalID) and a create action is queued.
func (r *Repository) Create(ctx context.Context, in model.RecordInput) (*model.Record, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}

	r.opMu.Lock()
	defer r.opMu.Unlock()

	if !r.conn.Online() {
		now := r.clock.Now()
		rec := model.NewRecord(model.LocalIDPrefix+r.idgen.New(), in, now)
		action := r.newAction(model.ActionCreate, rec.ID, &in, now)

		if err := r.commitOffline(action, func(view []model.Record) []model.Record {
			return append([]model.Record{rec}, view...)
		}); err != nil {
			return nil, err
		}

		r.logger.Info("record created offline", "id", rec.ID)
		return &rec, nil
	}

	// Mutations run to completion even if the caller goes away, so the
	// cache reflects what the remote accepted.
	rec, err := r.remote.Insert(context.WithoutCancel(ctx), in)
	if err != nil {
		return nil, fmt.Errorf("creating record: %w", err)
	}

	if err := r.commit(func(view []model.Record) []model.Record {
		return append([]model.Record{*rec}, view...)
	}); err != nil {
		return nil, err
	}

	r.logger.Info("record created", "id", rec.ID)
	return rec, nil
}

// Update overwrites the attributes of the record with the given id.
// Offline, the matching cache entry is patched in place and an update action
// is queued even if no entry matched.
func (r *Repository) Update(ctx context.Context, id string, in model.RecordInput) (*model.Record, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}

	r.opMu.Lock()
	defer r.opMu.Unlock()

	if !r.conn.Online() {
		updated := model.Record{ID: id}.Apply(in)
		action := r.newAction(model.ActionUpdate, id, &in, r.clock.Now())
		target := r.resolve(id)

		if err := r.commitOffline(action, func(view []model.Record) []model.Record {
			for i := range view {
				if view[i].ID == id || view[i].ID == target {
					view[i] = view[i].Apply(in)
					updated = view[i]
				}
			}
			return view
		}); err != nil {
			return nil, err
		}

		r.logger.Info("record updated offline", "id", id)
		return &updated, nil
	}

	rec, err := r.remote.Patch(context.WithoutCancel(ctx), r.resolve(id), in)
	if err != nil {
		return nil, fmt.Errorf("updating record %s: %w", id, err)
	}

	if err := r.commit(func(view []model.Record) []model.Record {
		for i := range view {
			if view[i].ID == rec.ID {
				view[i] = *rec
			}
		}
		return view
	}); err != nil {
		return nil, err
	}

	r.logger.Info("record updated", "id", rec.ID)
	return rec, nil
}

// Delete removes the record with the given id.
// Offline, a delete action is queued whether or not the record is cached.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if !r.conn.Online() {
		target := r.resolve(id)
		remove := func(view []model.Record) []model.Record {
			return slices.DeleteFunc(view, func(rec model.Record) bool {
				return rec.ID == id || rec.ID == target
			})
		}

		action := r.newAction(model.ActionDelete, id, nil, r.clock.Now())
		if err := r.commitOffline(action, remove); err != nil {
			return err
		}
		r.logger.Info("record deleted offline", "id", id)
		return nil
	}

	serverID := r.resolve(id)
	if err := r.remote.Delete(context.WithoutCancel(ctx), serverID); err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}

	if err := r.commit(func(view []model.Record) []model.Record {
		return slices.DeleteFunc(view, func(rec model.Record) bool {
			return rec.ID == id || rec.ID == serverID
		})
	}); err != nil {
		return err
	}

	r.logger.Info("record deleted", "id", serverID)
	return nil
}

// GetByID looks the record up in the in-memory view first, regardless of
// connectivity. Ids replaced during a flush resolve to their server id.
// If the record is not held locally it is fetched remotely when online;
// offline it is reported as ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id string) (*model.Record, error) {
	if rec, ok := r.lookup(id); ok {
		return &rec, nil
	}

	if !r.conn.Online() {
		return nil, fmt.Errorf("record %s not available offline: %w", id, ErrNotFound)
	}

	rec, err := r.remote.Get(ctx, r.resolve(id))
	if err != nil {
		return nil, fmt.Errorf("fetching record %s: %w", id, err)
	}
	return rec, nil
}

// Search filters and orders the in-memory view without touching the remote.
func (r *Repository) Search(q model.Query) []model.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return q.Apply(r.records)
}

// Records returns a copy of the in-memory view.
func (r *Repository) Records() []model.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.records)
}

// Pending returns the queued actions in replay order.
func (r *Repository) Pending() ([]model.PendingAction, error) {
	actions, err := r.log.Drain()
	if err != nil {
		return nil, fmt.Errorf("reading action log: %w", err)
	}
	return actions, nil
}

// readCache returns the persisted snapshot and makes it the in-memory view.
func (r *Repository) readCache() ([]model.Record, error) {
	records, err := r.cache.Read()
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	r.mu.Lock()
	r.records = records
	r.mu.Unlock()

	return slices.Clone(records), nil
}

// commit applies fn to a copy of the view, persists the result and then
// makes it the view. A storage failure leaves both untouched.
func (r *Repository) commit(fn func(view []model.Record) []model.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := fn(slices.Clone(r.records))
	if err := r.cache.Write(next); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	r.records = next
	return nil
}

// commitOffline applies an optimistic change and queues its action.
// If the action cannot be queued the previous snapshot is restored.
func (r *Repository) commitOffline(action model.PendingAction, fn func(view []model.Record) []model.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.records
	next := fn(slices.Clone(prev))
	if err := r.cache.Write(next); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	r.records = next

	if err := r.log.Append(action); err != nil {
		appendErr := fmt.Errorf("queueing %s action: %w", action.Kind, err)
		if rerr := r.cache.Write(prev); rerr != nil {
			r.logger.Error("restoring cache after failed append", "error", rerr)
			return errors.Join(appendErr, fmt.Errorf("restoring cache: %w", rerr))
		}
		r.records = prev
		return appendErr
	}
	return nil
}

func (r *Repository) newAction(kind model.ActionKind, recordID string, data *model.RecordInput, now time.Time) model.PendingAction {
	return model.PendingAction{
		ID:        r.idgen.New(),
		Kind:      kind,
		RecordID:  recordID,
		Data:      data,
		Timestamp: now,
	}
}

// lookup searches the view by id, then by the server id the id was replaced with.
func (r *Repository) lookup(id string) (model.Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := []string{id}
	if serverID, ok := r.aliases[id]; ok {
		candidates = append(candidates, serverID)
	}
	for _, c := range candidates {
		for _, rec := range r.records {
			if rec.ID == c {
				return rec, true
			}
		}
	}
	return model.Record{}, false
}

// resolve maps a client id to its server id once a flush has learned it.
func (r *Repository) resolve(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if serverID, ok := r.aliases[id]; ok {
		return serverID
	}
	return id
}

func (r *Repository) setLastError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = err.Error()
}
