package plans

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/platinummonkey/laman/pkg/observability"
)

// Seeder writes a catalog into a Store
type Seeder struct {
	store  Store
	logger *observability.Logger
}

// NewSeeder creates a new Seeder
func NewSeeder(store Store, logger *observability.Logger) *Seeder {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Seeder{store: store, logger: logger}
}

// Seed upserts every plan of the catalog by name and returns how many were
// written. Plans missing from the catalog are left untouched: subscriptions
// may still reference them.
func (s *Seeder) Seed(ctx context.Context, catalog *Catalog) (int, error) {
	if err := catalog.Validate(); err != nil {
		return 0, fmt.Errorf("invalid catalog: %w", err)
	}

	for i := range catalog.Plans {
		plan := catalog.Plans[i]
		if err := s.store.Upsert(ctx, &plan); err != nil {
			return i, fmt.Errorf("failed to seed plan %q: %w", plan.Name, err)
		}
		catalog.Plans[i] = plan
		s.logger.WithFields(map[string]interface{}{
			"plan_id": plan.ID,
			"plan":    plan.Name,
		}).Debug("seeded plan")
	}

	s.logger.WithField("plans", len(catalog.Plans)).Info("plan catalog seeded")
	return len(catalog.Plans), nil
}

// Watch seeds the catalog at path and re-seeds whenever the file is written
// or replaced, until ctx is cancelled. Invalid edits are logged and skipped
// so a typo never removes the running catalog.
func (s *Seeder) Watch(ctx context.Context, path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve catalog path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// editors often replace the file, so watch the directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	if err := s.seedFile(ctx, path); err != nil {
		return err
	}

	// coalesce bursts of events from a single save
	const settle = 200 * time.Millisecond
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				pending = time.After(settle)
			}

		case <-pending:
			pending = nil
			if err := s.seedFile(ctx, path); err != nil {
				s.logger.WithError(err).WithField("path", path).Warn("catalog reload failed")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.WithError(err).Warn("watcher error")
		}
	}
}

func (s *Seeder) seedFile(ctx context.Context, path string) error {
	catalog, err := LoadCatalogFile(path)
	if err != nil {
		return err
	}
	_, err = s.Seed(ctx, catalog)
	return err
}
