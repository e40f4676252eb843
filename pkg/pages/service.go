package pages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/laman/pkg/async"
	"github.com/platinummonkey/laman/pkg/entitlements"
	"github.com/platinummonkey/laman/pkg/observability"
	"github.com/platinummonkey/laman/pkg/templater"
)

var tracer = otel.Tracer("laman/pages")

const (
	// DefaultRecentLimit is the number of pages on the generator index
	DefaultRecentLimit = 5

	cacheWriteTimeout = 5 * time.Second
)

// Renderer turns a request into HTML and CSS. *templater.Generator satisfies it.
type Renderer interface {
	Generate(ctx context.Context, input templater.Input) templater.Output
}

// Reservation is a held generation that is charged on Commit
type Reservation interface {
	Commit(ctx context.Context) error
}

// Quota reserves one generation for a user inside tx
type Quota interface {
	Reserve(ctx context.Context, tx *sql.Tx, userID int64) (Reservation, error)
}

type trackerQuota struct {
	tracker *entitlements.Tracker
}

// TrackerQuota adapts an entitlements tracker to Quota
func TrackerQuota(tracker *entitlements.Tracker) Quota {
	return trackerQuota{tracker: tracker}
}

func (q trackerQuota) Reserve(ctx context.Context, tx *sql.Tx, userID int64) (Reservation, error) {
	r, err := q.tracker.Reserve(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Service implements page generation, editing and export for the owning user
type Service struct {
	db       *sql.DB
	store    *PostgresStore
	replica  func() *sql.DB
	quota    Quota
	renderer Renderer
	cache    *Cache
	exporter *Exporter
	logger   *observability.Logger

	metrics     *observability.Metrics
	otelMetrics *observability.OTelMetrics

	// Now stamps created_at and updated_at
	Now func() time.Time
}

// NewService creates a page service. Cache and exporter are optional and
// are set with WithCache and WithExporter.
func NewService(db *sql.DB, quota Quota, renderer Renderer, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Service{
		db:       db,
		store:    NewPostgresStore(db),
		quota:    quota,
		renderer: renderer,
		logger:   logger,
		Now:      time.Now,
	}
}

// WithCache serves Get through a Redis page cache
func (s *Service) WithCache(cache *Cache) *Service {
	s.cache = cache
	return s
}

// WithReadReplica sends listing queries to the pool returned by replica.
// Single page reads stay on the primary so a page is visible right after it
// is written.
func (s *Service) WithReadReplica(replica func() *sql.DB) *Service {
	s.replica = replica
	return s
}

// WithExporter enables Export
func (s *Service) WithExporter(exporter *Exporter) *Service {
	s.exporter = exporter
	return s
}

// WithMetrics enables Prometheus and OpenTelemetry counters. Either may be nil.
func (s *Service) WithMetrics(metrics *observability.Metrics, otelMetrics *observability.OTelMetrics) *Service {
	s.metrics = metrics
	s.otelMetrics = otelMetrics
	return s
}

// ExportEnabled reports whether an object store is configured
func (s *Service) ExportEnabled() bool {
	return s.exporter != nil
}

func (s *Service) now() time.Time {
	return s.Now().UTC()
}

// Generate validates req, reserves one generation and stores the rendered
// page. The page row, its output and the usage increment commit together;
// a failed render keeps the page as failed without charging the user.
func (s *Service) Generate(ctx context.Context, userID int64, req Request) (*Page, error) {
	ctx, span := tracer.Start(ctx, "Pages.Generate",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.String("template.style", req.Style()),
		),
	)
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	reservation, err := s.reserve(ctx, tx, userID)
	if err != nil {
		s.recordGeneration(ctx, req.Style(), "rejected", 0)
		return nil, err
	}

	now := s.now()
	page := &Page{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Prompt:      req.Prompt,
		Style:       req.Style(),
		Status:      StatusGenerating,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	store := s.store.WithTx(tx)
	if err := store.Create(ctx, page); err != nil {
		span.RecordError(err)
		return nil, err
	}

	start := time.Now()
	out, renderErr := s.render(ctx, req.input())
	duration := time.Since(start)

	if renderErr != nil {
		span.RecordError(renderErr)
		span.SetStatus(codes.Error, "render failed")
		page.Status = StatusFailed
		page.Metadata = map[string]any{"error": renderErr.Error()}
	} else {
		page.HTML = out.HTML
		page.CSS = out.CSS
		page.Status = StatusCompleted
		page.Metadata = metadataFor(out)
	}
	page.UpdatedAt = s.now()

	if err := store.Update(ctx, page); err != nil {
		return nil, err
	}
	if renderErr == nil {
		if err := reservation.Commit(ctx); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit page: %w", err)
	}

	s.recordGeneration(ctx, page.Style, string(page.Status), duration)
	logger := s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"page_id": page.ID,
		"style":   page.Style,
	})
	if renderErr != nil {
		logger.WithError(renderErr).Error("page generation failed")
		return page, fmt.Errorf("%w: %v", ErrGenerationFailed, renderErr)
	}
	logger.Info("page generated")

	s.cachePage(ctx, page)
	return page, nil
}

// Get returns the user's page. A page owned by someone else yields ErrUnauthorized.
func (s *Service) Get(ctx context.Context, userID, id int64) (*Page, error) {
	if s.cache != nil {
		page, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.WithError(err).WithField("page_id", id).Warn("page cache read failed")
		}
		if page != nil {
			s.recordCache(true)
			return owned(page, userID)
		}
		s.recordCache(false)
	}

	page, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := owned(page, userID); err != nil {
		return nil, err
	}

	s.cachePage(ctx, page)
	return page, nil
}

// Update applies req to the user's page. A changed prompt needs and is
// charged one generation; a changed style alone re-renders for free.
func (s *Service) Update(ctx context.Context, userID, id int64, req Request) (*Page, error) {
	ctx, span := tracer.Start(ctx, "Pages.Update",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.Int64("page.id", id),
		),
	)
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	store := s.store.WithTx(tx)
	page, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := owned(page, userID); err != nil {
		return nil, err
	}

	promptChanged := req.Prompt != page.Prompt
	styleChanged := req.Style() != page.Style

	var reservation Reservation
	if promptChanged {
		if reservation, err = s.reserve(ctx, tx, userID); err != nil {
			return nil, err
		}
	}

	page.Title = req.Title
	page.Description = req.Description
	page.Prompt = req.Prompt
	page.Style = req.Style()

	var renderErr error
	if promptChanged || styleChanged {
		start := time.Now()
		var out templater.Output
		out, renderErr = s.render(ctx, req.input())
		if renderErr != nil {
			span.RecordError(renderErr)
			page.Status = StatusFailed
			page.Metadata = map[string]any{"error": renderErr.Error()}
		} else {
			page.HTML = out.HTML
			page.CSS = out.CSS
			page.Status = StatusCompleted
			page.Metadata = metadataFor(out)
		}
		s.recordGeneration(ctx, page.Style, string(page.Status), time.Since(start))
	}
	page.UpdatedAt = s.now()

	if err := store.Update(ctx, page); err != nil {
		return nil, err
	}
	if reservation != nil && renderErr == nil {
		if err := reservation.Commit(ctx); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit page: %w", err)
	}

	s.invalidate(ctx, id)
	if renderErr != nil {
		return page, fmt.Errorf("%w: %v", ErrGenerationFailed, renderErr)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":     userID,
		"page_id":     id,
		"regenerated": promptChanged || styleChanged,
		"charged":     promptChanged,
	}).Info("page updated")
	return page, nil
}

// Delete removes the user's page
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	page, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := owned(page, userID); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)

	s.logger.WithField("user_id", userID).WithField("page_id", id).Info("page deleted")
	return nil
}

// ListRecent returns the user's newest pages, DefaultRecentLimit when limit <= 0
func (s *Service) ListRecent(ctx context.Context, userID int64, limit int) ([]*Page, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	store := s.store
	if s.replica != nil {
		store = NewPostgresStore(s.replica())
	}
	return store.ListRecent(ctx, userID, limit)
}

// Export uploads the user's completed page to the object store
func (s *Service) Export(ctx context.Context, userID, id int64) (*Export, error) {
	if s.exporter == nil {
		return nil, ErrExportDisabled
	}

	ctx, span := tracer.Start(ctx, "Pages.Export",
		trace.WithAttributes(attribute.Int64("page.id", id)),
	)
	defer span.End()

	page, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	export, err := s.exporter.Export(ctx, page)
	if err != nil {
		span.RecordError(err)
		s.recordExport("failed")
		return nil, err
	}
	s.recordExport("completed")

	s.logger.WithFields(map[string]interface{}{
		"user_id":  userID,
		"page_id":  id,
		"html_key": export.HTMLKey,
	}).Info("page exported")
	return export, nil
}

func (s *Service) reserve(ctx context.Context, tx *sql.Tx, userID int64) (Reservation, error) {
	reservation, err := s.quota.Reserve(ctx, tx, userID)
	if errors.Is(err, entitlements.ErrNoActiveSubscription) {
		return nil, entitlements.NoSubscriptionLimit()
	}
	return reservation, err
}

func (s *Service) render(ctx context.Context, input templater.Input) (out templater.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = observability.PanicError(r)
		}
	}()
	return s.renderer.Generate(ctx, input), nil
}

func owned(page *Page, userID int64) (*Page, error) {
	if page.UserID != userID {
		return nil, ErrUnauthorized
	}
	return page, nil
}

func (s *Service) cachePage(ctx context.Context, page *Page) {
	if s.cache == nil {
		return
	}
	cached := *page
	async.SafeGo(ctx, s.logger, cacheWriteTimeout, "page cache write", func(ctx context.Context) error {
		return s.cache.Set(ctx, &cached)
	})
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, id); err != nil {
		s.logger.WithError(err).WithField("page_id", id).Warn("page cache invalidation failed")
	}
}

func (s *Service) recordGeneration(ctx context.Context, style, status string, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.GenerationsTotal.WithLabelValues(style, status).Inc()
		if duration > 0 {
			s.metrics.GenerationDuration.WithLabelValues(style).Observe(duration.Seconds())
		}
	}
	s.otelMetrics.RecordGeneration(ctx, style, status, duration)
}

func (s *Service) recordCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHitsTotal.WithLabelValues("page").Inc()
	} else {
		s.metrics.CacheMissesTotal.WithLabelValues("page").Inc()
	}
}

func (s *Service) recordExport(status string) {
	if s.metrics != nil {
		s.metrics.ExportsTotal.WithLabelValues(status).Inc()
	}
}
