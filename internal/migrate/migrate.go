// Package migrate implements the schema-versioned migration runner guarding
// the on-disk store (spec §4.9). Grounded on the teacher's
// internal/registry.Registry atomic-write pattern (write-temp + rename) for
// schema_version.json, generalized from a tenant registry file to a single
// version record.
package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

// VersionFile is the sibling file persisted beside the store (spec §6
// filesystem contracts).
type VersionFile struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Migration is one ordered, idempotent schema step.
type Migration struct {
	Version     int
	Description string
	Run         func(ctx context.Context) error
}

// Runner persists VersionFile atomically and applies pending Migrations in
// order on daemon start.
type Runner struct {
	path       string
	migrations []Migration
	logger     *zap.Logger
}

// NewRunner builds a Runner whose version file lives at
// filepath.Join(dataDir, "schema_version.json"). migrations must be sorted
// by Version ascending; NewRunner sorts a copy defensively so callers don't
// have to maintain that invariant by hand.
func NewRunner(dataDir string, migrations []Migration, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return &Runner{
		path:       filepath.Join(dataDir, "schema_version.json"),
		migrations: sorted,
		logger:     logger,
	}
}

// CurrentVersion reads the persisted version, defaulting to 0 if the file
// does not exist yet (a fresh store).
func (r *Runner) CurrentVersion() (int, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", r.path, err)
	}
	var vf VersionFile
	if err := json.Unmarshal(data, &vf); err != nil {
		return 0, fmt.Errorf("parsing %s: %w", r.path, err)
	}
	return vf.Version, nil
}

// Step describes one migration's outcome, returned by Run and by DryRun.
type Step struct {
	Version     int
	Description string
	Applied     bool
	Error       string
}

// Result summarizes a Run or DryRun call.
type Result struct {
	StartVersion int
	EndVersion   int
	Steps        []Step
	UpToDate     bool
}

// Run applies every pending migration (version > current) in order. Each
// migration's success persists the new version immediately; a failure
// aborts the sequence and leaves the version at the last successful step
// (spec §4.9, §7: "migration failures abort the sequence").
func (r *Runner) Run(ctx context.Context) (Result, error) {
	return r.run(ctx, false)
}

// DryRun reports what Run would do without mutating the version file or
// invoking any migration's Run function.
func (r *Runner) DryRun(ctx context.Context) (Result, error) {
	return r.run(ctx, true)
}

func (r *Runner) run(ctx context.Context, dryRun bool) (Result, error) {
	current, err := r.CurrentVersion()
	if err != nil {
		return Result{}, err
	}
	res := Result{StartVersion: current, EndVersion: current}

	pending := make([]Migration, 0)
	for _, m := range r.migrations {
		if m.Version > current {
			pending = append(pending, m)
		}
	}
	if len(pending) == 0 {
		res.UpToDate = true
		r.logger.Info("migrations up to date", zap.Int("version", current))
		return res, nil
	}

	for _, m := range pending {
		if dryRun {
			res.Steps = append(res.Steps, Step{Version: m.Version, Description: m.Description})
			continue
		}
		r.logger.Info("running migration", zap.Int("version", m.Version), zap.String("description", m.Description))
		if err := m.Run(ctx); err != nil {
			res.Steps = append(res.Steps, Step{Version: m.Version, Description: m.Description, Error: err.Error()})
			r.logger.Error("migration failed, aborting sequence",
				zap.Int("version", m.Version), zap.Error(err))
			return res, fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if err := r.persist(m.Version); err != nil {
			return res, fmt.Errorf("persisting version %d: %w", m.Version, err)
		}
		res.Steps = append(res.Steps, Step{Version: m.Version, Description: m.Description, Applied: true})
		res.EndVersion = m.Version
	}
	return res, nil
}

// persist writes VersionFile atomically: write-temp + rename, the same
// pattern as the teacher's internal/registry.Registry.save.
func (r *Runner) persist(version int) error {
	vf := VersionFile{Version: version, UpdatedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(vf, "", "  ")
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
