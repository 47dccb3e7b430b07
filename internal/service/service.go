package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"discount-strategy-api/internal/cache"
	"discount-strategy-api/internal/database"
	"discount-strategy-api/internal/discount"
	"discount-strategy-api/internal/events"
	"discount-strategy-api/internal/features"
	"discount-strategy-api/internal/models"
	"discount-strategy-api/internal/obs"
	"discount-strategy-api/internal/rules"
	"discount-strategy-api/internal/tracing"
	"discount-strategy-api/internal/validation"
)

var (
	// ErrStoreNotFound is returned by store lookups for unknown ids.
	ErrStoreNotFound = errors.New("store not found")
	// ErrPersistenceDisabled is returned by writes when no database is configured.
	ErrPersistenceDisabled = errors.New("rule persistence is disabled")
	// ErrFeatureNotFound is returned when toggling an unregistered flag.
	ErrFeatureNotFound = errors.New("feature flag not found")
)

// Reload sources reported in metrics, events and logs.
const (
	SourceFile     = "file"
	SourceDatabase = "database"
	SourceAPI      = "api"
)

// Options carries the optional collaborators of a Service. Zero values
// disable the matching concern.
type Options struct {
	DB       *database.DB
	Cache    cache.Cache
	CacheTTL time.Duration
	Events   *events.Manager
	Features *features.Manager
	Metrics  *obs.DomainMetrics
	Tracer   *tracing.Tracer
	Logger   zerolog.Logger
	// Timezone replaces the time zone of every loaded document when set.
	Timezone string
	Now      func() time.Time
}

// Service answers evaluation and rule queries against the active rule
// snapshot. Each call reads exactly one snapshot; reloads swap it atomically.
type Service struct {
	repo atomic.Pointer[rules.Repository]
	// writeMu serializes snapshot replacements so concurrent updates never
	// build on a stale snapshot.
	writeMu sync.Mutex

	db       *database.DB
	cache    cache.Cache
	cacheTTL time.Duration
	events   *events.Manager
	features *features.Manager
	metrics  *obs.DomainMetrics
	tracer   *tracing.Tracer
	logger   zerolog.Logger
	timezone string
	now      func() time.Time
	newID    func() string
}

// NewService creates a new service serving repo.
func NewService(repo *rules.Repository, opts Options) *Service {
	s := &Service{
		db:       opts.DB,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		events:   opts.Events,
		features: opts.Features,
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		logger:   opts.Logger,
		timezone: opts.Timezone,
		now:      opts.Now,
		newID:    uuid.NewString,
	}
	if s.tracer == nil {
		s.tracer = tracing.Noop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.repo.Store(repo)
	s.metrics.ObserveReload("initial", len(repo.Stores()), nil)
	return s
}

// Repository returns the active snapshot.
func (s *Service) Repository() *rules.Repository {
	return s.repo.Load()
}

// Now returns the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}

// Evaluate ranks every sanctioned payment combination for req at now.
func (s *Service) Evaluate(ctx context.Context, req discount.Request, now time.Time) (models.EvaluationResponse, error) {
	ctx, span := s.tracer.StartSpan(ctx, "service.Evaluate")
	defer span.End()

	repo := s.repo.Load()
	req = req.Normalize()
	span.SetAttributes(
		attribute.String("store_id", req.StoreID),
		attribute.Int64("amount", req.Amount),
		attribute.String("rules_version", repo.Version()),
	)
	if err := req.Validate(); err != nil {
		s.metrics.ObserveEvaluation(obs.UnknownStore, "invalid", "", 0)
		span.SetStatus(codes.Error, err.Error())
		return models.EvaluationResponse{}, err
	}

	engine := discount.NewEngine(repo)
	key, keyErr := cacheKey(repo, req, now)
	records, cached := s.cachedRecords(ctx, key, keyErr)
	if !cached {
		var err error
		records, err = engine.Evaluate(req, now)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return models.EvaluationResponse{}, err
		}
		s.storeRecords(ctx, key, keyErr, records)
	}

	results := make([]models.Result, 0, len(records))
	for _, rec := range records {
		if rec.Clamped {
			s.logger.Warn().
				Str("store_id", req.StoreID).
				Str("method", rec.Method).
				Int64("amount", req.Amount).
				Msg("benefit exceeded the purchase amount and was clamped")
		}
		results = append(results, models.Result{
			OutcomeRecord: rec,
			LineItems:     engine.Components(rec, req.StoreID),
		})
	}

	resp := models.EvaluationResponse{
		EvaluationID: s.newID(),
		StoreID:      req.StoreID,
		EvaluatedAt:  now.In(repo.Location()),
		RulesVersion: repo.Version(),
		Cached:       cached,
		Best:         results[0],
		Results:      results,
	}

	best := resp.Best
	outcome, method := "ranked", best.Method
	if best.Sentinel != "" {
		outcome, method = string(best.Sentinel), ""
	}
	storeLabel := req.StoreID
	if best.Sentinel == discount.SentinelNoRules {
		storeLabel = obs.UnknownStore
	}
	s.metrics.ObserveEvaluation(storeLabel, outcome, method, best.TotalBenefitAmount)
	span.SetAttributes(
		attribute.Bool("cached", cached),
		attribute.Int("results", len(results)),
		attribute.String("outcome", outcome),
	)

	if s.features.IsEnabled(features.FeatureEventHooksEnabled) {
		s.events.PublishEvaluationCompleted(ctx, events.EvaluationCompletedData{
			EvaluationID: resp.EvaluationID,
			StoreID:      req.StoreID,
			Amount:       req.Amount,
			BestMethod:   best.Method,
			BestBenefit:  best.TotalBenefitAmount,
			Results:      len(results),
			Cached:       cached,
		})
	}
	return resp, nil
}

// cacheKey identifies a normalized request within the store-local weekday
// and hour of one rule version, the only clock inputs the rules read.
func cacheKey(repo *rules.Repository, req discount.Request, now time.Time) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	local := now.In(repo.Location())
	return fmt.Sprintf("eval:%s:%d:%02d:%016x", repo.Version(), local.Weekday(), local.Hour(), xxhash.Sum64(data)), nil
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.features.IsEnabled(features.FeatureCacheEnabled)
}

func (s *Service) cachedRecords(ctx context.Context, key string, keyErr error) ([]discount.OutcomeRecord, bool) {
	if !s.cacheEnabled() || keyErr != nil {
		return nil, false
	}
	var records []discount.OutcomeRecord
	err := cache.GetJSON(ctx, s.cache, key, &records)
	if err == nil && len(records) > 0 {
		s.metrics.ObserveCache(true)
		return records, true
	}
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		s.logger.Warn().Err(err).Msg("evaluation cache read failed")
	}
	s.metrics.ObserveCache(false)
	return nil, false
}

func (s *Service) storeRecords(ctx context.Context, key string, keyErr error, records []discount.OutcomeRecord) {
	if !s.cacheEnabled() || keyErr != nil {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, key, records, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Msg("evaluation cache write failed")
	}
}

// Stores summarizes every store of the active snapshot in document order.
func (s *Service) Stores() models.StoresResponse {
	repo := s.repo.Load()
	out := models.StoresResponse{
		RulesVersion: repo.Version(),
		Timezone:     repo.Location().String(),
		Stores:       []models.StoreSummary{},
	}
	for _, st := range repo.Stores() {
		summary := models.StoreSummary{
			ID:                 st.ID,
			Name:               st.Name,
			Kind:               st.Kind,
			Carriers:           []rules.CarrierKind{},
			PlatformMembership: st.PlatformMembership.Enabled,
			WeekendWallet:      st.WeekendWallet.Enabled,
			PromoWallet:        st.PromoWallet.Enabled,
			Specials:           len(st.Specials),
		}
		for _, c := range rules.Carriers {
			if rule, ok := st.Carrier(c); ok && rule.Enabled {
				summary.Carriers = append(summary.Carriers, c)
			}
		}
		out.Stores = append(out.Stores, summary)
	}
	return out
}

// StoreRules returns the normalized rules of storeID.
func (s *Service) StoreRules(storeID string) (models.StoreRulesResponse, error) {
	repo := s.repo.Load()
	st, ok := repo.Get(storeID)
	if !ok {
		return models.StoreRulesResponse{}, fmt.Errorf("%w: %s", ErrStoreNotFound, storeID)
	}
	return models.StoreRulesResponse{RulesVersion: repo.Version(), Store: st}, nil
}

// Specials values the ad-hoc promotions of storeID for amount.
func (s *Service) Specials(storeID string, amount int64) (models.SpecialsResponse, error) {
	if amount < 0 || amount > discount.MaxAmount {
		return models.SpecialsResponse{}, &validation.ValidationError{
			Field:   "amount",
			Message: fmt.Sprintf("must be between 0 and %d", discount.MaxAmount),
		}
	}
	st, ok := s.repo.Load().Get(storeID)
	if !ok {
		return models.SpecialsResponse{}, fmt.Errorf("%w: %s", ErrStoreNotFound, storeID)
	}
	return models.SpecialsResponse{
		StoreID:  storeID,
		Amount:   amount,
		Specials: discount.Specials(st, amount),
	}, nil
}

// UpsertStoreRules persists store under storeID and activates a snapshot
// containing it.
func (s *Service) UpsertStoreRules(ctx context.Context, storeID string, store rules.Store) (models.StoreRulesResponse, error) {
	if s.db == nil {
		return models.StoreRulesResponse{}, ErrPersistenceDisabled
	}
	if store.ID == "" {
		store.ID = storeID
	}
	if store.ID != storeID {
		return models.StoreRulesResponse{}, &validation.ValidationError{
			Field:   "id",
			Message: "must match the store id in the path",
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next, err := s.repo.Load().WithStore(store)
	if err != nil {
		return models.StoreRulesResponse{}, err
	}
	if err := s.db.UpsertStore(ctx, store); err != nil {
		return models.StoreRulesResponse{}, fmt.Errorf("failed to persist store: %w", err)
	}
	s.activate(ctx, next, SourceAPI)

	saved, _ := next.Get(storeID)
	return models.StoreRulesResponse{RulesVersion: next.Version(), Store: saved}, nil
}

// UpsertPromoOverride persists a promotional wallet override for storeID and
// activates a snapshot containing it.
func (s *Service) UpsertPromoOverride(ctx context.Context, storeID string, carrier string, rate float64) (models.PromoOverrideResponse, error) {
	if s.db == nil {
		return models.PromoOverrideResponse{}, ErrPersistenceDisabled
	}
	c, ok := rules.ParseCarrier(carrier)
	if !ok {
		return models.PromoOverrideResponse{}, &validation.ValidationError{
			Field:   "carrier",
			Message: "must be one of: skt, kt, lgu or empty",
		}
	}
	override := rules.PromoWalletOverride{StoreID: storeID, Carrier: c, Rate: rate}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	repo := s.repo.Load()
	if _, ok := repo.Get(storeID); !ok {
		return models.PromoOverrideResponse{}, fmt.Errorf("%w: %s", ErrStoreNotFound, storeID)
	}
	next, err := repo.WithOverride(override)
	if err != nil {
		return models.PromoOverrideResponse{}, err
	}
	if err := s.db.UpsertOverride(ctx, override); err != nil {
		return models.PromoOverrideResponse{}, fmt.Errorf("failed to persist override: %w", err)
	}
	s.activate(ctx, next, SourceAPI)

	return models.PromoOverrideResponse{RulesVersion: next.Version(), Override: override}, nil
}

// Features lists the runtime feature flags.
func (s *Service) Features() models.FeaturesResponse {
	out := models.FeaturesResponse{Features: []features.FeatureFlag{}}
	if s.features != nil {
		out.Features = s.features.List()
	}
	return out
}

// SetFeature toggles a registered feature flag.
func (s *Service) SetFeature(name string, enabled bool) (models.FeaturesResponse, error) {
	if s.features == nil || !s.features.Set(name, enabled) {
		return models.FeaturesResponse{}, fmt.Errorf("%w: %s", ErrFeatureNotFound, name)
	}
	s.logger.Info().Str("feature", name).Bool("enabled", enabled).Msg("feature flag changed")
	return s.Features(), nil
}

// ReloadFromFile activates the rule document at path. With persistence
// enabled the document also replaces the stored rules.
func (s *Service) ReloadFromFile(ctx context.Context, path string) error {
	doc, err := rules.LoadFile(path)
	if err != nil {
		s.metrics.ObserveReload(SourceFile, 0, err)
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	repo, err := s.build(doc)
	if err != nil {
		s.metrics.ObserveReload(SourceFile, 0, err)
		return err
	}
	if s.db != nil {
		if err := s.db.ImportDocument(ctx, repo.Document()); err != nil {
			s.metrics.ObserveReload(SourceFile, 0, err)
			return fmt.Errorf("failed to store reloaded rules: %w", err)
		}
	}
	s.activate(ctx, repo, SourceFile)
	return nil
}

// ReloadFromDB activates the rules stored in the database.
func (s *Service) ReloadFromDB(ctx context.Context) error {
	if s.db == nil {
		return ErrPersistenceDisabled
	}
	doc, err := s.db.LoadDocument(ctx)
	if err != nil {
		s.metrics.ObserveReload(SourceDatabase, 0, err)
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	repo, err := s.build(doc)
	if err != nil {
		s.metrics.ObserveReload(SourceDatabase, 0, err)
		return err
	}
	s.activate(ctx, repo, SourceDatabase)
	return nil
}

// BuildRepository applies the configured time zone override to doc and
// builds a snapshot from it.
func BuildRepository(doc rules.Document, timezone string) (*rules.Repository, error) {
	if timezone != "" {
		doc.Timezone = timezone
	}
	return rules.NewRepository(doc)
}

func (s *Service) build(doc rules.Document) (*rules.Repository, error) {
	return BuildRepository(doc, s.timezone)
}

// activate swaps in repo and drops the cached results of the previous
// snapshot, which no key carrying the new version can reach.
func (s *Service) activate(ctx context.Context, repo *rules.Repository, source string) {
	prev := s.repo.Swap(repo)
	if s.cache != nil && prev.Version() != repo.Version() {
		if err := s.cache.Clear(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("evaluation cache clear failed")
		}
	}
	s.metrics.ObserveReload(source, len(repo.Stores()), nil)
	s.logger.Info().
		Str("source", source).
		Str("previous_version", prev.Version()).
		Str("version", repo.Version()).
		Int("stores", len(repo.Stores())).
		Msg("rules reloaded")

	if s.features.IsEnabled(features.FeatureEventHooksEnabled) {
		s.events.PublishRulesReloaded(ctx, events.RulesReloadedData{
			Source:  source,
			Version: repo.Version(),
			Stores:  len(repo.Stores()),
		})
	}
}

// Health reports the active snapshot.
func (s *Service) Health() models.HealthResponse {
	repo := s.repo.Load()
	return models.HealthResponse{
		Status:       "ok",
		RulesVersion: repo.Version(),
		Stores:       len(repo.Stores()),
	}
}
