package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"staffsync/internal/actionlog"
	"staffsync/internal/cache"
	"staffsync/internal/config"
	"staffsync/internal/connectivity"
	"staffsync/internal/encryption"
	"staffsync/internal/model"
	"staffsync/internal/remote"
	"staffsync/internal/staff"
	"staffsync/internal/storage"
)

// StaffApp is the application layer between the CLI and the Repository.
// It constructs all dependencies from config, exposes high-level operations,
// and releases the storage medium and log file on Close.
type StaffApp struct {
	cfg       *config.Config
	store     staff.Storage
	remote    remote.Service
	monitor   *connectivity.Monitor
	prober    *connectivity.Prober // nil unless connectivity mode is "probe"
	encryptor staff.Encryptor
	cache     *cache.LocalCache
	log       *actionlog.Log
	repo      *staff.Repository
	op        *Operation
	slog      *slog.Logger
	logger    staff.Logger
	logFile   *os.File
}

// NewStaffApp creates a fully wired StaffApp from the given config.
// operation identifies the CLI command being run (e.g. "list", "sync").
// Log lines go to the log file and, if console is non-nil, to console.
// In probe mode the remote is pinged once before returning so the first
// command already sees the real connectivity state. If the app comes up
// online with actions pending, they are flushed before returning.
// The caller must call Close when done.
func NewStaffApp(ctx context.Context, cfg *config.Config, operation string, console io.Writer) (*StaffApp, error) {
	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	op := NewOperation(operation, time.Now())
	logger, logFile, err := newLogger(cfg.LogDir, op.ID, level, console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	adapter := &slogAdapter{l: logger}

	a := &StaffApp{cfg: cfg, op: op, slog: logger, logger: adapter, logFile: logFile}
	if err := a.wire(ctx); err != nil {
		a.closeResources()
		return nil, err
	}

	logger.Debug("operation started", "operation", operation, "client_id", cfg.ClientID)

	// Coming up online counts as a reconnect: actions queued by an earlier
	// offline invocation are replayed before the command reads the remote.
	if a.Online() {
		a.repo.FlushIfPending(ctx)
	}
	return a, nil
}

func (a *StaffApp) wire(ctx context.Context) error {
	cfg := a.cfg

	rem, err := remote.NewRemoteFromConfig(cfg.Remote, staff.RealClock{}, staff.UUIDGenerator{})
	if err != nil {
		return fmt.Errorf("creating remote: %w", err)
	}
	a.remote = rem

	monitor, err := connectivity.NewMonitorFromConfig(cfg.Connectivity)
	if err != nil {
		return fmt.Errorf("creating connectivity monitor: %w", err)
	}
	a.monitor = monitor

	if cfg.Connectivity.Mode == "probe" {
		interval, err := cfg.Connectivity.ProbeIntervalDuration()
		if err != nil {
			return err
		}
		a.prober = connectivity.NewProber(rem, monitor, interval, a.logger)
		a.prober.Check(ctx)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	a.encryptor = enc

	store, err := storage.NewStorageFromConfig(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("creating storage: %w", err)
	}
	a.store = store

	return a.openRepository()
}

// openRepository (re)builds the cache, log and repository over the medium.
func (a *StaffApp) openRepository() error {
	a.cache = cache.New(a.store)
	a.log = actionlog.New(a.store)

	repo, err := staff.NewRepository(a.remote, a.cache, a.log, a.monitor, a.logger, staff.RealClock{}, staff.UUIDGenerator{})
	if err != nil {
		return fmt.Errorf("opening repository: %w", err)
	}
	a.repo = repo
	return nil
}

// track records err on the operation and passes it through.
func (a *StaffApp) track(err error) error {
	a.op.Fail(err)
	return err
}

// Online reports the current connectivity state.
func (a *StaffApp) Online() bool {
	return a.monitor.Online()
}

// SetOnline overrides the connectivity state for this invocation.
func (a *StaffApp) SetOnline(online bool) {
	a.monitor.Set(online)
}

// List refreshes from the remote when online and returns the records
// matching q.
func (a *StaffApp) List(ctx context.Context, q model.Query) ([]model.Record, error) {
	records, err := a.repo.List(ctx)
	if err != nil {
		return nil, a.track(err)
	}
	return q.Apply(records), nil
}

// Show returns a single record.
func (a *StaffApp) Show(ctx context.Context, id string) (*model.Record, error) {
	rec, err := a.repo.GetByID(ctx, id)
	return rec, a.track(err)
}

// Add creates a record.
func (a *StaffApp) Add(ctx context.Context, in model.RecordInput) (*model.Record, error) {
	rec, err := a.repo.Create(ctx, in)
	return rec, a.track(err)
}

// Edit loads the record, lets change modify its attributes and saves them.
func (a *StaffApp) Edit(ctx context.Context, id string, change func(in *model.RecordInput)) (*model.Record, error) {
	current, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return nil, a.track(err)
	}

	in := current.Input()
	change(&in)

	rec, err := a.repo.Update(ctx, id, in)
	return rec, a.track(err)
}

// Remove deletes a record.
func (a *StaffApp) Remove(ctx context.Context, id string) error {
	return a.track(a.repo.Delete(ctx, id))
}

// Sync replays pending actions against the remote.
func (a *StaffApp) Sync(ctx context.Context) (*staff.FlushResult, error) {
	res, err := a.repo.Flush(ctx)
	return res, a.track(err)
}

// Status returns the synchronization state.
func (a *StaffApp) Status() (*staff.Status, error) {
	st, err := a.repo.Status()
	return st, a.track(err)
}

// Pending returns the queued actions in replay order.
func (a *StaffApp) Pending() ([]model.PendingAction, error) {
	actions, err := a.repo.Pending()
	return actions, a.track(err)
}

// EncryptionConfigured reports whether export keys exist.
func (a *StaffApp) EncryptionConfigured() bool {
	return a.encryptor.IsConfigured()
}

// SetupEncryption generates the export key pair.
func (a *StaffApp) SetupEncryption(passphrase string) error {
	if err := a.encryptor.Setup(passphrase); err != nil {
		return a.track(fmt.Errorf("setting up encryption: %w", err))
	}
	a.slog.Info("encryption keys generated", "public_key", a.cfg.Encryption.PublicKeyPath)
	return nil
}

// Export writes the cache snapshot and pending log as an encrypted bundle.
// Only the public key is needed.
func (a *StaffApp) Export(w io.Writer) (*Bundle, error) {
	records, err := a.cache.Read()
	if err != nil {
		return nil, a.track(fmt.Errorf("reading cache: %w", err))
	}
	pending, err := a.log.Drain()
	if err != nil {
		return nil, a.track(fmt.Errorf("reading action log: %w", err))
	}

	b := &Bundle{
		Version:    BundleVersion,
		ClientID:   a.cfg.ClientID,
		ExportedAt: time.Now().UTC(),
		Records:    records,
		Pending:    pending,
	}

	var plain bytes.Buffer
	if err := encodeBundle(&plain, b); err != nil {
		return nil, a.track(err)
	}
	if err := a.encryptor.Encrypt(&plain, w); err != nil {
		return nil, a.track(fmt.Errorf("encrypting bundle: %w", err))
	}

	a.slog.Info("exported", "records", len(records), "pending", len(pending))
	return b, nil
}

// Import decrypts a bundle and replaces the local cache and action log with
// its content. The repository is reopened over the new state.
func (a *StaffApp) Import(r io.Reader, passphrase string) (*Bundle, error) {
	dc, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return nil, a.track(fmt.Errorf("unlocking private key: %w", err))
	}

	var plain bytes.Buffer
	if err := dc.Decrypt(r, &plain); err != nil {
		return nil, a.track(fmt.Errorf("decrypting bundle: %w", err))
	}

	b, err := decodeBundle(&plain)
	if err != nil {
		return nil, a.track(err)
	}

	// The log is replaced first: a failure after it leaves pending work
	// intact, and a stale cache is corrected by the next refresh.
	if err := a.log.Replace(b.Pending); err != nil {
		return nil, a.track(err)
	}
	if err := a.cache.Write(b.Records); err != nil {
		return nil, a.track(err)
	}
	if err := a.openRepository(); err != nil {
		return nil, a.track(err)
	}

	a.slog.Info("imported", "from_client", b.ClientID, "records", len(b.Records), "pending", len(b.Pending))
	return b, nil
}

// Watch runs the connectivity prober (in probe mode) and the repository's
// flush-on-reconnect loop until ctx is done.
func (a *StaffApp) Watch(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.prober != nil {
		g.Go(func() error { return a.prober.Run(ctx) })
	}
	g.Go(func() error { return a.repo.Run(ctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return a.track(err)
}

// Repository exposes the underlying repository.
func (a *StaffApp) Repository() *staff.Repository {
	return a.repo
}

// Close finalizes the operation and closes all resources.
func (a *StaffApp) Close() error {
	if a.op.Succeeded() {
		a.slog.Debug("operation finished", "operation", a.op.Name, "status", a.op.Status, "elapsed", time.Since(a.op.StartedAt))
	} else {
		a.slog.Warn("operation finished", "operation", a.op.Name, "status", a.op.Status, "error", a.op.Err)
	}
	return a.closeResources()
}

func (a *StaffApp) closeResources() error {
	var firstErr error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			firstErr = fmt.Errorf("closing storage: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
