package consol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// DBRepository defines the persistence behaviour required by the service.
type DBRepository interface {
	EntityRecords(ctx context.Context) ([]EntityRecord, error)
	TransactionsForPeriod(ctx context.Context, period string) ([]LedgerTransaction, error)
	SaveRun(ctx context.Context, res *ConsolidatedResult) error
	GetRun(ctx context.Context, id string) (*ConsolidatedResult, error)
}

// ResultCache caches run envelopes keyed by run ID.
type ResultCache interface {
	GetRun(ctx context.Context, id string) (*ConsolidatedResult, error)
	StoreRun(ctx context.Context, res *ConsolidatedResult) error
}

// Service loads consolidation inputs, drives the engine and persists the
// result envelope.
type Service struct {
	repo   DBRepository
	cache  ResultCache
	engine *Engine
	logger *slog.Logger
}

// NewService constructs a consolidation service instance. The cache is
// optional.
func NewService(repo DBRepository, cache ResultCache, engine *Engine, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, engine: engine, logger: logger}
}

// RunConsolidation loads the entity catalogue and the period's ledger, runs
// the engine and stores the result. Input loading happens concurrently; the
// engine itself stays sequential and deterministic.
func (s *Service) RunConsolidation(ctx context.Context, scope Scope) (*ConsolidatedResult, error) {
	if s == nil || s.repo == nil || s.engine == nil {
		return nil, fmt.Errorf("consol service not initialised")
	}
	if scope.Period == "" {
		return nil, fmt.Errorf("consol: period is required")
	}

	var (
		entities []EntityRecord
		txns     []LedgerTransaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entities, err = s.repo.EntityRecords(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		txns, err = s.repo.TransactionsForPeriod(gctx, scope.Period)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	root, err := BuildHierarchy(entities)
	if err != nil {
		return nil, fmt.Errorf("consol: malformed hierarchy: %w", err)
	}

	result, err := s.engine.Run(scope, txns, root, func(stage Stage) {
		s.log().Debug("consolidation progress", slog.String("period", scope.Period), slog.String("stage", string(stage)))
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveRun(ctx, result); err != nil {
		return nil, fmt.Errorf("consol: persist run: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.StoreRun(ctx, result); err != nil {
			s.log().Warn("cache store failed", slog.String("run_id", result.RunID), slog.Any("error", err))
		}
	}

	s.log().Info("consolidation run stored",
		slog.String("run_id", result.RunID),
		slog.String("period", scope.Period),
		slog.Int("eliminations", len(result.Eliminations)),
		slog.Int("warnings", len(result.Validation.Warnings)))
	return result, nil
}

// GetRun fetches a stored run, preferring the cache.
func (s *Service) GetRun(ctx context.Context, id string) (*ConsolidatedResult, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("consol service not initialised")
	}
	if s.cache != nil {
		res, err := s.cache.GetRun(ctx, id)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.log().Warn("cache read failed", slog.String("run_id", id), slog.Any("error", err))
		}
	}
	res, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.StoreRun(ctx, res); err != nil {
			s.log().Warn("cache backfill failed", slog.String("run_id", id), slog.Any("error", err))
		}
	}
	return res, nil
}

func (s *Service) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger.With(slog.String("component", "consol_service"))
	}
	return slog.Default().With(slog.String("component", "consol_service"))
}
