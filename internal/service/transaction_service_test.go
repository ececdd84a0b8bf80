package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"finboard/internal/analytics"
	"finboard/internal/dto"
	"finboard/internal/models"
	"finboard/internal/repository"
	"finboard/internal/view"
	"finboard/pkg/config"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type recordingInvalidator struct {
	got []view.Invalidation
	err error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, inv view.Invalidation) error {
	r.got = append(r.got, inv)
	return r.err
}

// countingStore wraps a store and counts writes.
type countingStore struct {
	repository.TransactionStore
	writes int
}

func (s *countingStore) Create(ctx context.Context, userID string, f models.TransactionFields) (string, error) {
	s.writes++
	return s.TransactionStore.Create(ctx, userID, f)
}

func (s *countingStore) Update(ctx context.Context, userID, id string, f models.TransactionFields) error {
	s.writes++
	return s.TransactionStore.Update(ctx, userID, id, f)
}

var errBackend = errors.New("connection refused")

type failingStore struct{}

func (failingStore) Create(context.Context, string, models.TransactionFields) (string, error) {
	return "", errBackend
}
func (failingStore) Get(context.Context, string, string) (*models.Transaction, error) {
	return nil, errBackend
}
func (failingStore) List(context.Context, string) ([]models.Transaction, error) {
	return nil, errBackend
}
func (failingStore) Update(context.Context, string, string, models.TransactionFields) error {
	return errBackend
}
func (failingStore) Delete(context.Context, string, string) error { return errBackend }

var listing = &config.ListingConfig{PageSize: 10, MaxPageSize: 50}

func newService(t *testing.T, store repository.TransactionStore, cache *view.Cache) (*TransactionService, *recordingInvalidator) {
	t.Helper()
	rec := &recordingInvalidator{}
	svc := NewTransactionService(store, cache, rec, NewValidator(func() time.Time { return fixedNow }), listing, time.Second, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc, rec
}

func request(desc, amount, category, date string) *dto.TransactionRequest {
	return &dto.TransactionRequest{
		Amount:      decimal.RequireFromString(amount),
		Category:    category,
		Description: desc,
		Date:        date,
	}
}

func TestAddStoresAndInvalidates(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t, repository.NewMemoryTransactionStore(), nil)

	res, err := svc.Add(ctx, "alice", request("Coffee", "3.20", "food", "2024-06-10"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.ID == "" {
		t.Fatal("no id assigned")
	}
	if len(res.Invalidated) != 2 || res.Invalidated[0] != view.ScopeDashboard || res.Invalidated[1] != view.ScopeTransactions {
		t.Errorf("invalidated = %v", res.Invalidated)
	}
	if len(rec.got) != 1 || rec.got[0].UserID != "alice" || !rec.got[0].At.Equal(fixedNow) {
		t.Fatalf("invalidations = %+v", rec.got)
	}

	tx, err := svc.Get(ctx, "alice", res.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tx.Description != "Coffee" || tx.UserID != "alice" {
		t.Errorf("stored %+v", tx)
	}
}

func TestAddRejectsInvalidInputBeforeWriting(t *testing.T) {
	store := &countingStore{TransactionStore: repository.NewMemoryTransactionStore()}
	svc, rec := newService(t, store, nil)

	_, err := svc.Add(context.Background(), "alice", request("Refund", "-1", "food", "2024-06-10"))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if verr.Fields["amount"] != "Amount must be a positive number." {
		t.Errorf("fields = %v", verr.Fields)
	}
	if store.writes != 0 {
		t.Errorf("store saw %d writes", store.writes)
	}
	if len(rec.got) != 0 {
		t.Errorf("invalidation fired for a rejected add")
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t, repository.NewMemoryTransactionStore(), nil)
	added, _ := svc.Add(ctx, "alice", request("Bus", "2.40", "transport", "2024-06-10"))

	res, err := svc.Update(ctx, "alice", added.ID, request("Train", "12.00", "transport", "2024-06-11"))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(res.Invalidated) != 3 {
		t.Fatalf("invalidated = %v", res.Invalidated)
	}
	if id, ok := res.Invalidated[2].TransactionID(); !ok || id != added.ID {
		t.Errorf("per-transaction scope = %v", res.Invalidated[2])
	}
	if len(rec.got) != 2 {
		t.Errorf("invalidations = %d", len(rec.got))
	}

	tx, _ := svc.Get(ctx, "alice", added.ID)
	if tx.Description != "Train" || !tx.Amount.Equal(decimal.NewFromInt(12)) {
		t.Errorf("update not applied: %+v", tx)
	}

	if _, err := svc.Update(ctx, "bob", added.ID, request("Hijack", "1", "other", "2024-06-11")); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign update err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Update(ctx, "alice", added.ID, request("x", "1", "other", "2024-06-11")); !errors.As(err, new(*ValidationError)) {
		t.Errorf("invalid update err = %v, want *ValidationError", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t, repository.NewMemoryTransactionStore(), nil)
	added, _ := svc.Add(ctx, "alice", request("Cinema", "11", "entertainment", "2024-06-10"))

	if _, err := svc.Delete(ctx, "bob", added.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Delete(ctx, "alice", added.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Delete(ctx, "alice", added.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Delete(ctx, "alice", "does-not-exist"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing delete err = %v, want ErrNotFound", err)
	}
	// One add and one successful delete.
	if len(rec.got) != 2 {
		t.Errorf("invalidations = %d, want 2", len(rec.got))
	}
}

func TestMutationSurvivesInvalidationFailure(t *testing.T) {
	svc := NewTransactionService(
		repository.NewMemoryTransactionStore(), nil,
		&recordingInvalidator{err: errors.New("broker down")},
		NewValidator(func() time.Time { return fixedNow }), listing, time.Second, zap.NewNop(),
	)
	if _, err := svc.Add(context.Background(), "alice", request("Lunch", "9", "food", "2024-06-10")); err != nil {
		t.Fatalf("Add failed because of invalidation: %v", err)
	}
}

func TestStoreFailures(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t, failingStore{}, nil)

	if _, err := svc.Add(ctx, "alice", request("Lunch", "9", "food", "2024-06-10")); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Add err = %v", err)
	}
	if _, err := svc.Update(ctx, "alice", "id", request("Lunch", "9", "food", "2024-06-10")); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Update err = %v", err)
	}
	if _, err := svc.Delete(ctx, "alice", "id"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Delete err = %v", err)
	}
	if _, err := svc.Get(ctx, "alice", "id"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Get err = %v", err)
	}
	if len(rec.got) != 0 {
		t.Errorf("failed mutations invalidated views")
	}

	summary := svc.Dashboard(ctx, "alice")
	if !summary.TotalExpenses.IsZero() || summary.TransactionCount != 0 || summary.CategoryTotals == nil || summary.RecentTransactions == nil {
		t.Errorf("dashboard did not degrade to empty: %+v", summary)
	}
	page := svc.List(ctx, "alice", analytics.Query{})
	if page.Items == nil || len(page.Items) != 0 || page.Total != 0 {
		t.Errorf("list did not degrade to empty: %+v", page)
	}
}

func TestDashboardAndList(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, repository.NewMemoryTransactionStore(), nil)

	inputs := []*dto.TransactionRequest{
		request("Supermarket", "50.00", "groceries", "2024-06-01"),
		request("Taxi", "20.00", "transport", "2024-06-02"),
		request("Market", "30.00", "groceries", "2024-06-03"),
	}
	for _, in := range inputs {
		if _, err := svc.Add(ctx, "alice", in); err != nil {
			t.Fatal(err)
		}
	}

	s := svc.Dashboard(ctx, "alice")
	if !s.TotalExpenses.Equal(decimal.NewFromInt(100)) || s.TransactionCount != 3 {
		t.Fatalf("summary = %+v", s)
	}
	if len(s.CategoryTotals) != 2 || s.CategoryTotals[0].Category != models.CategoryGroceries {
		t.Errorf("category totals = %+v", s.CategoryTotals)
	}
	if s.RecentTransactions[0].Description != "Market" {
		t.Errorf("most recent = %q", s.RecentTransactions[0].Description)
	}

	page := svc.List(ctx, "alice", analytics.Query{SortKey: analytics.SortByAmount, Order: analytics.Ascending, PageSize: 2})
	if page.Total != 3 || page.TotalPages != 2 || len(page.Items) != 2 || page.Items[0].Description != "Taxi" {
		t.Errorf("page = %+v", page)
	}

	if other := svc.Dashboard(ctx, "bob"); other.TransactionCount != 0 {
		t.Errorf("bob sees %d transactions", other.TransactionCount)
	}
}

func TestListNormalizesQuery(t *testing.T) {
	svc, _ := newService(t, repository.NewMemoryTransactionStore(), nil)

	tests := []struct {
		in   analytics.Query
		want analytics.Query
	}{
		{analytics.Query{}, analytics.Query{SortKey: analytics.SortByDate, Order: analytics.Descending, PageSize: 10}},
		{analytics.Query{PageSize: 500, Page: -3}, analytics.Query{SortKey: analytics.SortByDate, Order: analytics.Descending, PageSize: 50}},
		{analytics.Query{SortKey: analytics.SortByAmount, Order: analytics.Ascending, PageSize: 5, Page: 2}, analytics.Query{SortKey: analytics.SortByAmount, Order: analytics.Ascending, PageSize: 5, Page: 2}},
	}
	for _, tt := range tests {
		if got := svc.normalizeQuery(tt.in); got != tt.want {
			t.Errorf("normalizeQuery(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestCachedViewsAreRefreshedAfterMutation(t *testing.T) {
	ctx := context.Background()
	cache, err := view.NewCache(100, time.Minute, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	svc, _ := newService(t, repository.NewMemoryTransactionStore(), cache)

	first, _ := svc.Add(ctx, "alice", request("Pharmacy", "15", "health", "2024-06-01"))
	if got := svc.Dashboard(ctx, "alice"); got.TransactionCount != 1 {
		t.Fatalf("count = %d", got.TransactionCount)
	}
	if _, ok := cache.Summary("alice"); !ok {
		t.Fatal("dashboard was not cached")
	}
	if _, err := svc.Get(ctx, "alice", first.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Update(ctx, "alice", first.ID, request("Dentist", "80", "health", "2024-06-02")); err != nil {
		t.Fatal(err)
	}
	if tx, _ := svc.Get(ctx, "alice", first.ID); tx.Description != "Dentist" {
		t.Errorf("stale per-transaction view: %q", tx.Description)
	}
	if got := svc.Dashboard(ctx, "alice"); !got.TotalExpenses.Equal(decimal.NewFromInt(80)) {
		t.Errorf("stale dashboard: total = %s", got.TotalExpenses)
	}

	if _, err := svc.Add(ctx, "alice", request("Gym", "30", "health", "2024-06-03")); err != nil {
		t.Fatal(err)
	}
	if page := svc.List(ctx, "alice", analytics.Query{}); page.Total != 2 {
		t.Errorf("stale listing: total = %d", page.Total)
	}
}

func newTestCache(t *testing.T) *view.Cache {
	t.Helper()
	cache, err := view.NewCache(100, time.Minute, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(cache.Close)
	return cache
}

func TestCachedGetDoesNotCrossUsers(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, repository.NewMemoryTransactionStore(), newTestCache(t))

	created, err := svc.Add(ctx, "a:b", request("Private rent", "900", "utilities", "2024-06-01"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, "a:b", created.ID); err != nil {
		t.Fatal(err)
	}

	tx, err := svc.Get(ctx, "a", "b:"+created.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("user a read %+v, err = %v", tx, err)
	}
}

// racingStore runs onList once, after List has taken its snapshot and before
// it returns, the way a mutation committed mid-read would.
type racingStore struct {
	repository.TransactionStore
	onList func()
}

func (s *racingStore) List(ctx context.Context, userID string) ([]models.Transaction, error) {
	txs, err := s.TransactionStore.List(ctx, userID)
	if hook := s.onList; hook != nil {
		s.onList = nil
		hook()
	}
	return txs, err
}

func TestSlowReadDoesNotCacheStaleView(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{TransactionStore: repository.NewMemoryTransactionStore()}
	svc, _ := newService(t, store, newTestCache(t))

	if _, err := svc.Add(ctx, "alice", request("Pharmacy", "15", "health", "2024-06-01")); err != nil {
		t.Fatal(err)
	}
	store.onList = func() {
		if _, err := svc.Add(ctx, "alice", request("Gym", "30", "health", "2024-06-02")); err != nil {
			t.Error(err)
		}
	}

	if got := svc.Dashboard(ctx, "alice"); got.TransactionCount != 1 {
		t.Fatalf("racing read count = %d, want the pre-mutation snapshot", got.TransactionCount)
	}
	if got := svc.Dashboard(ctx, "alice"); got.TransactionCount != 2 {
		t.Errorf("count = %d after mutation, stale view was cached", got.TransactionCount)
	}
	if page := svc.List(ctx, "alice", analytics.Query{}); page.Total != 2 {
		t.Errorf("listing total = %d, stale view was cached", page.Total)
	}
}
