package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finboard/internal/analytics"
	"finboard/internal/dto"
	"finboard/internal/models"
	"finboard/internal/repository"
	"finboard/internal/view"
	"finboard/pkg/config"

	"go.uber.org/zap"
)

// MutationResult reports the id written and the views that are now stale.
type MutationResult struct {
	ID          string
	Invalidated []view.Scope
}

type TransactionService struct {
	store       repository.TransactionStore
	cache       *view.Cache
	invalidator view.Invalidator
	validator   *Validator
	listing     config.ListingConfig
	timeout     time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// NewTransactionService wires the store to the view layer. cache may be nil to
// disable read caching; when set it is invalidated ahead of invalidator.
func NewTransactionService(
	store repository.TransactionStore,
	cache *view.Cache,
	invalidator view.Invalidator,
	validator *Validator,
	listing *config.ListingConfig,
	timeout time.Duration,
	logger *zap.Logger,
) *TransactionService {
	fanout := view.Fanout{}
	if cache != nil {
		fanout = append(fanout, cache)
	}
	if invalidator != nil {
		fanout = append(fanout, invalidator)
	}

	return &TransactionService{
		store:       store,
		cache:       cache,
		invalidator: fanout,
		validator:   validator,
		listing:     *listing,
		timeout:     timeout,
		now:         time.Now,
		logger:      logger,
	}
}

func (s *TransactionService) Add(ctx context.Context, userID string, req *dto.TransactionRequest) (*MutationResult, error) {
	fields, err := s.validator.Transaction(req)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	id, err := s.store.Create(storeCtx, userID, fields)
	if err != nil {
		s.logger.Error("Failed to create transaction",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("create transaction: %w: %w", ErrStoreUnavailable, err)
	}

	scopes := view.ScopesForCreate()
	s.invalidate(ctx, userID, scopes)

	s.logger.Info("Transaction added",
		zap.String("user_id", userID),
		zap.String("transaction_id", id),
		zap.String("category", string(fields.Category)),
	)
	return &MutationResult{ID: id, Invalidated: scopes}, nil
}

// Update replaces every mutable field of an existing transaction owned by userID.
func (s *TransactionService) Update(ctx context.Context, userID, id string, req *dto.TransactionRequest) (*MutationResult, error) {
	fields, err := s.validator.Transaction(req)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	if _, err := s.store.Get(storeCtx, userID, id); err != nil {
		return nil, s.storeError("update", userID, id, err)
	}
	if err := s.store.Update(storeCtx, userID, id, fields); err != nil {
		return nil, s.storeError("update", userID, id, err)
	}

	scopes := view.ScopesForChange(id)
	s.invalidate(ctx, userID, scopes)

	s.logger.Info("Transaction updated",
		zap.String("user_id", userID),
		zap.String("transaction_id", id),
	)
	return &MutationResult{ID: id, Invalidated: scopes}, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) (*MutationResult, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	if _, err := s.store.Get(storeCtx, userID, id); err != nil {
		return nil, s.storeError("delete", userID, id, err)
	}
	if err := s.store.Delete(storeCtx, userID, id); err != nil {
		return nil, s.storeError("delete", userID, id, err)
	}

	scopes := view.ScopesForChange(id)
	s.invalidate(ctx, userID, scopes)

	s.logger.Info("Transaction deleted",
		zap.String("user_id", userID),
		zap.String("transaction_id", id),
	)
	return &MutationResult{ID: id, Invalidated: scopes}, nil
}

// Get returns a single transaction, e.g. to prefill an edit form.
func (s *TransactionService) Get(ctx context.Context, userID, id string) (*models.Transaction, error) {
	var gen uint64
	if s.cache != nil {
		if tx, ok := s.cache.Transaction(userID, id); ok {
			return &tx, nil
		}
		gen = s.cache.Generation(userID)
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	tx, err := s.store.Get(storeCtx, userID, id)
	if err != nil {
		return nil, s.storeError("read", userID, id, err)
	}
	if s.cache != nil {
		s.cache.SetTransaction(userID, gen, *tx)
	}
	return tx, nil
}

// List returns one page of the user's transactions. A store failure yields an
// empty page rather than an error.
func (s *TransactionService) List(ctx context.Context, userID string, q analytics.Query) analytics.Page {
	q = s.normalizeQuery(q)

	txs, err := s.transactions(ctx, userID)
	if err != nil {
		s.logger.Warn("Serving empty transaction list",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		txs = nil
	}
	return analytics.Paginate(txs, q)
}

// Dashboard summarises the user's transactions. A store failure yields the
// zero summary rather than an error.
func (s *TransactionService) Dashboard(ctx context.Context, userID string) analytics.Summary {
	var gen uint64
	if s.cache != nil {
		if summary, ok := s.cache.Summary(userID); ok {
			return summary
		}
		gen = s.cache.Generation(userID)
	}

	txs, err := s.transactions(ctx, userID)
	if err != nil {
		s.logger.Warn("Serving empty dashboard",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return analytics.EmptySummary()
	}

	summary := analytics.Summarize(txs)
	if s.cache != nil {
		s.cache.SetSummary(userID, gen, summary)
	}
	return summary
}

func (s *TransactionService) transactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	var gen uint64
	if s.cache != nil {
		if txs, ok := s.cache.Transactions(userID); ok {
			return txs, nil
		}
		gen = s.cache.Generation(userID)
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	txs, err := s.store.List(storeCtx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w: %w", ErrStoreUnavailable, err)
	}
	if s.cache != nil {
		s.cache.SetTransactions(userID, gen, txs)
	}
	return txs, nil
}

func (s *TransactionService) normalizeQuery(q analytics.Query) analytics.Query {
	if q.SortKey == "" {
		q.SortKey = analytics.SortByDate
	}
	if q.Order == "" {
		q.Order = analytics.Descending
	}
	if q.PageSize < 1 {
		q.PageSize = s.listing.PageSize
	}
	if s.listing.MaxPageSize > 0 && q.PageSize > s.listing.MaxPageSize {
		q.PageSize = s.listing.MaxPageSize
	}
	if q.Page < 0 {
		q.Page = 0
	}
	return q
}

func (s *TransactionService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *TransactionService) storeError(op, userID, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s transaction %s: %w", op, id, ErrNotFound)
	}
	s.logger.Error("Transaction store call failed",
		zap.String("op", op),
		zap.String("user_id", userID),
		zap.String("transaction_id", id),
		zap.Error(err),
	)
	return fmt.Errorf("%s transaction %s: %w: %w", op, id, ErrStoreUnavailable, err)
}

// invalidate announces stale views. The mutation is already committed, so a
// failure here is logged and never returned.
func (s *TransactionService) invalidate(ctx context.Context, userID string, scopes []view.Scope) {
	inv := view.Invalidation{UserID: userID, Scopes: scopes, At: s.now()}
	if err := s.invalidator.Invalidate(context.WithoutCancel(ctx), inv); err != nil {
		s.logger.Warn("Failed to invalidate views",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}
