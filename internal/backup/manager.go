// Package backup creates, lists, prunes, and restores per-engine archives
// of database data directories.
//
// Archives are plain tar.gz files named by a sortable timestamp id; the
// backup directory listing is the source of truth, with no index file.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zulandar/rds/internal/models"
	"github.com/zulandar/rds/internal/notify"
	"github.com/zulandar/rds/internal/registry"
)

var (
	// ErrNotConfigured is returned for engines without an enabled backup policy.
	ErrNotConfigured = errors.New("backup not configured")
	// ErrBusy is returned when a backup or restore is already in flight
	// for the engine.
	ErrBusy = errors.New("backup or restore already in progress")
	// ErrNotFound is returned when no archive matches the requested id.
	ErrNotFound = errors.New("backup not found")
)

// IDCollisionError reports an id that already has an archive on disk.
// Existing archives are never overwritten.
type IDCollisionError struct {
	Engine string
	ID     string
}

func (e *IDCollisionError) Error() string {
	return fmt.Sprintf("backup: id %s already exists for engine %s", e.ID, e.Engine)
}

// idFormat makes ids lexicographically sortable by creation time at
// second resolution.
const idFormat = "20060102-150405"

// archiveSuffix is the file extension of every backup archive.
const archiveSuffix = ".tar.gz"

// Record describes one retained archive.
type Record struct {
	ID        string
	Path      string
	Size      int64
	CreatedAt time.Time
}

// RestoreResult reports a completed restore.
type RestoreResult struct {
	ID      string
	Warning string // set when the engine was not confirmed stopped
}

// StatusProber reports an engine's live state. Implemented by
// dispatch.Dispatcher.
type StatusProber interface {
	Status(ctx context.Context, engine string) string
}

// Auditor records completed operations. Implemented by store.Store.
type Auditor interface {
	Append(rec models.OpRecord) error
}

// Manager owns the backup lifecycle for all registered engines.
type Manager struct {
	reg      *registry.Registry
	status   StatusProber
	audit    Auditor
	notifier notify.Notifier
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Opts holds optional Manager collaborators.
type Opts struct {
	Status   StatusProber    // nil disables the restore-while-running warning probe
	Audit    Auditor         // nil disables audit records
	Notifier notify.Notifier // nil disables notifications
	Now      func() time.Time
}

// NewManager creates a Manager over the given registry.
func NewManager(reg *registry.Registry, opts Opts) (*Manager, error) {
	if reg == nil {
		return nil, fmt.Errorf("backup: registry is required")
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		reg:      reg,
		status:   opts.Status,
		audit:    opts.Audit,
		notifier: notifier,
		now:      now,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// engineLock returns the per-engine mutex, creating it on first use.
func (m *Manager) engineLock(engine string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[engine]
	if !ok {
		l = &sync.Mutex{}
		m.locks[engine] = l
	}
	return l
}

// Backup archives the engine's data directory under a fresh id and prunes
// retention. At most one backup or restore runs per engine at a time; a
// concurrent call fails with ErrBusy. The archive appears under its final
// name only when complete.
func (m *Manager) Backup(ctx context.Context, engine string) (Record, error) {
	e, err := m.reg.Get(engine)
	if err != nil {
		return Record{}, err
	}
	if !e.HasBackup() {
		return Record{}, fmt.Errorf("backup: %w for engine %s", ErrNotConfigured, engine)
	}

	lock := m.engineLock(engine)
	if !lock.TryLock() {
		return Record{}, fmt.Errorf("backup: %w for engine %s", ErrBusy, engine)
	}
	defer lock.Unlock()

	started := m.now()
	rec, err := m.createArchive(e, started)
	m.record(engine, "backup", started, err)
	if err != nil {
		m.post(ctx, notify.Event{
			Title:    "Backup failed: " + engine,
			Body:     err.Error(),
			Severity: notify.SeverityError,
		})
		return Record{}, err
	}

	pruned, pruneErr := m.prune(e)
	m.post(ctx, notify.Event{
		Title:    "Backup completed: " + engine,
		Severity: notify.SeveritySuccess,
		Fields: []notify.Field{
			{Name: "id", Value: rec.ID},
			{Name: "pruned", Value: fmt.Sprint(pruned)},
		},
	})
	if pruneErr != nil {
		// The new archive is safe; surface the retention failure.
		return rec, fmt.Errorf("backup: %s succeeded as %s but pruning failed: %w", engine, rec.ID, pruneErr)
	}
	return rec, nil
}

// createArchive writes the archive for one backup run. The temp file is
// renamed into place only on success and removed on any failure.
func (m *Manager) createArchive(e *registry.Engine, started time.Time) (Record, error) {
	dir := e.Backup.Directory
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return Record{}, fmt.Errorf("backup: create directory %s: %w", dir, err)
	}

	id := started.UTC().Format(idFormat)
	final := filepath.Join(dir, id+archiveSuffix)
	if _, err := os.Lstat(final); err == nil {
		return Record{}, &IDCollisionError{Engine: e.Name, ID: id}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Record{}, fmt.Errorf("backup: stat %s: %w", final, err)
	}

	tmp := filepath.Join(dir, "."+id+archiveSuffix+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return Record{}, fmt.Errorf("backup: create temp archive: %w", err)
	}

	if err := writeArchive(f, e.DataDir); err != nil {
		f.Close()
		os.Remove(tmp)
		return Record{}, fmt.Errorf("backup: archive %s: %w", e.DataDir, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return Record{}, fmt.Errorf("backup: close temp archive: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return Record{}, fmt.Errorf("backup: finalize archive: %w", err)
	}

	info, err := os.Stat(final)
	if err != nil {
		return Record{}, fmt.Errorf("backup: stat archive: %w", err)
	}
	return Record{ID: id, Path: final, Size: info.Size(), CreatedAt: started.UTC()}, nil
}

// prune deletes archives beyond the engine's retention count, newest kept.
// Runs only after a successful backup.
func (m *Manager) prune(e *registry.Engine) (int, error) {
	recs, err := m.List(e.Name)
	if err != nil {
		return 0, err
	}
	if len(recs) <= e.Backup.Keep {
		return 0, nil
	}
	pruned := 0
	for _, rec := range recs[e.Backup.Keep:] {
		if err := os.Remove(rec.Path); err != nil {
			return pruned, fmt.Errorf("remove %s: %w", rec.Path, err)
		}
		pruned++
	}
	return pruned, nil
}

// List returns the engine's backup records, newest first. A missing backup
// directory yields an empty list, not an error.
func (m *Manager) List(engine string) ([]Record, error) {
	e, err := m.reg.Get(engine)
	if err != nil {
		return nil, err
	}
	if e.Backup == nil || e.Backup.Directory == "" {
		return nil, fmt.Errorf("backup: %w for engine %s", ErrNotConfigured, engine)
	}

	entries, err := os.ReadDir(e.Backup.Directory)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backup: list %s: %w", e.Backup.Directory, err)
	}

	recs := make([]Record, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, archiveSuffix) {
			continue
		}
		id := strings.TrimSuffix(name, archiveSuffix)
		created, err := time.ParseInLocation(idFormat, id, time.UTC)
		if err != nil {
			// Foreign file in the backup directory; not ours to manage.
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		recs = append(recs, Record{
			ID:        id,
			Path:      filepath.Join(e.Backup.Directory, name),
			Size:      info.Size(),
			CreatedAt: created,
		})
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].ID > recs[j].ID })
	return recs, nil
}

// Restore extracts the archive with the given id over the engine's data
// directory. It does not stop the engine; when the engine is not confirmed
// inactive a warning is attached and the restore proceeds (advisory
// contract — the caller is responsible for stopping the engine first).
// Restore is not transactional: a failure partway through extraction
// leaves the data directory in a mixed state.
func (m *Manager) Restore(ctx context.Context, engine, id string) (RestoreResult, error) {
	e, err := m.reg.Get(engine)
	if err != nil {
		return RestoreResult{}, err
	}
	if e.Backup == nil || e.Backup.Directory == "" {
		return RestoreResult{}, fmt.Errorf("backup: %w for engine %s", ErrNotConfigured, engine)
	}

	recs, err := m.List(engine)
	if err != nil {
		return RestoreResult{}, err
	}
	var target *Record
	for i := range recs {
		if recs[i].ID == id {
			target = &recs[i]
			break
		}
	}
	if target == nil {
		return RestoreResult{}, fmt.Errorf("backup: %w: %s for engine %s", ErrNotFound, id, engine)
	}

	lock := m.engineLock(engine)
	if !lock.TryLock() {
		return RestoreResult{}, fmt.Errorf("backup: %w for engine %s", ErrBusy, engine)
	}
	defer lock.Unlock()

	res := RestoreResult{ID: id}
	if m.status != nil {
		if state := m.status.Status(ctx, engine); state != "inactive" {
			res.Warning = fmt.Sprintf("engine %s reports state %q; restoring over a running engine produces undefined results", engine, state)
		}
	} else {
		res.Warning = fmt.Sprintf("engine %s state unknown; stop it before restoring", engine)
	}

	started := m.now()
	err = m.extract(target.Path, e.DataDir)
	m.record(engine, "restore", started, err)
	if err != nil {
		m.post(ctx, notify.Event{
			Title:    "Restore failed: " + engine,
			Body:     err.Error(),
			Severity: notify.SeverityError,
			Fields:   []notify.Field{{Name: "id", Value: id}},
		})
		return res, err
	}

	severity := notify.SeveritySuccess
	if res.Warning != "" {
		severity = notify.SeverityWarning
	}
	m.post(ctx, notify.Event{
		Title:    "Restore completed: " + engine,
		Body:     res.Warning,
		Severity: severity,
		Fields:   []notify.Field{{Name: "id", Value: id}},
	})
	return res, nil
}

func (m *Manager) extract(archivePath, dataDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("backup: open archive %s: %w", archivePath, err)
	}
	defer f.Close()

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return fmt.Errorf("backup: create data dir %s: %w", dataDir, err)
	}
	if err := extractArchive(f, dataDir); err != nil {
		return fmt.Errorf("backup: extract %s (data dir may be in a mixed state): %w", archivePath, err)
	}
	return nil
}

// record writes an audit row. Audit failures never fail the operation.
func (m *Manager) record(engine, action string, started time.Time, opErr error) {
	if m.audit == nil {
		return
	}
	rec := models.OpRecord{
		Engine:     engine,
		Action:     action,
		Status:     models.OpStatusOK,
		StartedAt:  started,
		DurationMs: time.Since(started).Milliseconds(),
	}
	if opErr != nil {
		rec.Status = models.OpStatusFailed
		rec.Detail = opErr.Error()
	}
	_ = m.audit.Append(rec)
}

// post sends a notification, best-effort.
func (m *Manager) post(ctx context.Context, ev notify.Event) {
	_ = m.notifier.Post(ctx, ev)
}
