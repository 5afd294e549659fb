package transaction

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"balanceledger/internal/domain/entity"
	errs "balanceledger/internal/domain/error"
	coreport "balanceledger/internal/domain/port/core"
	"balanceledger/internal/domain/port/events"
	"balanceledger/internal/domain/usecase/lock"
	schedadapter "balanceledger/internal/infrastructure/adapter/scheduler"
)

// fakeAggregateRepo mimics the store's compare-and-swap semantics on the
// Locked flag under a mutex, so concurrent submits race the same way they
// would against the real conditional writes.
type fakeAggregateRepo struct {
	mu   sync.Mutex
	aggs map[string]*entity.BalanceAggregate
}

func newFakeAggregateRepo() *fakeAggregateRepo {
	return &fakeAggregateRepo{aggs: make(map[string]*entity.BalanceAggregate)}
}

func (r *fakeAggregateRepo) Get(_ context.Context, userID string) (*entity.BalanceAggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agg, ok := r.aggs[userID]
	if !ok {
		return nil, errs.ErrAggregateNotFound
	}
	copied := *agg
	return &copied, nil
}

func (r *fakeAggregateRepo) CreateLocked(_ context.Context, userID string) (*entity.BalanceAggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.aggs[userID]; exists {
		return nil, errs.ErrAggregateExists
	}
	agg := &entity.BalanceAggregate{
		UserID:      userID,
		Balance:     decimal.Zero,
		Locked:      true,
		LockVersion: 1,
	}
	r.aggs[userID] = agg
	copied := *agg
	return &copied, nil
}

func (r *fakeAggregateRepo) Lock(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agg, ok := r.aggs[userID]
	if !ok {
		return errs.ErrAggregateNotFound
	}
	if agg.Locked {
		return errs.ErrAggregateLocked
	}
	agg.Locked = true
	agg.LockVersion++
	return nil
}

func (r *fakeAggregateRepo) Unlock(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agg, ok := r.aggs[userID]
	if !ok || !agg.Locked {
		return errs.ErrAggregateNotLocked
	}
	agg.Locked = false
	return nil
}

func (r *fakeAggregateRepo) CommitBalance(_ context.Context, userID string, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agg, ok := r.aggs[userID]
	if !ok || !agg.Locked {
		return errs.ErrAggregateNotLocked
	}
	agg.Balance = balance
	agg.Locked = false
	return nil
}

func (r *fakeAggregateRepo) balance(userID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aggs[userID].Balance.String()
}

func (r *fakeAggregateRepo) locked(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	agg, ok := r.aggs[userID]
	return ok && agg.Locked
}

type fakeTransactionRepo struct {
	mu   sync.Mutex
	txns map[string]*entity.Transaction
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{txns: make(map[string]*entity.Transaction)}
}

func (r *fakeTransactionRepo) Get(_ context.Context, idempotentKey string) (*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	txn, ok := r.txns[idempotentKey]
	if !ok {
		return nil, errs.ErrTransactionNotFound
	}
	copied := *txn
	return &copied, nil
}

func (r *fakeTransactionRepo) CreateIfAbsent(_ context.Context, txn *entity.Transaction) (*entity.Transaction, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.txns[txn.IdempotentKey]; ok {
		copied := *existing
		return &copied, false, nil
	}
	copied := *txn
	r.txns[txn.IdempotentKey] = &copied
	return txn, true, nil
}

func (r *fakeTransactionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.txns)
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []events.TransactionApplied
}

func (p *capturingPublisher) PublishTransactionApplied(_ context.Context, event events.TransactionApplied) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type nopLogger struct{}

func (nopLogger) SetLevel(_ coreport.LogLevel)     {}
func (nopLogger) Debug(_ string, _ map[string]any) {}
func (nopLogger) Info(_ string, _ map[string]any)  {}
func (nopLogger) Warn(_ string, _ map[string]any)  {}
func (nopLogger) Error(_ string, _ map[string]any) {}
func (nopLogger) Flush() error                     { return nil }

type realTimeProvider struct{}

func (realTimeProvider) Now() time.Time { return time.Now() }

func (realTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

func (realTimeProvider) WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

type serviceFixture struct {
	service   *Service
	aggs      *fakeAggregateRepo
	txns      *fakeTransactionRepo
	actions   *schedadapter.InMem
	publisher *capturingPublisher
}

func newServiceFixture() *serviceFixture {
	aggs := newFakeAggregateRepo()
	txns := newFakeTransactionRepo()
	actions := schedadapter.NewInMem()
	publisher := &capturingPublisher{}
	tp := realTimeProvider{}
	logger := nopLogger{}

	guard := lock.NewGuard(aggs, actions, tp, logger, lock.Config{})
	service := NewService(guard, aggs, txns, publisher, tp, logger, RetryConfig{
		MaxAttempts: 10,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	})

	return &serviceFixture{
		service:   service,
		aggs:      aggs,
		txns:      txns,
		actions:   actions,
		publisher: publisher,
	}
}

func submit(t *testing.T, f *serviceFixture, userID, key, amount, txType string) (*SubmitResult, error) {
	t.Helper()
	return f.service.Submit(context.Background(), SubmitRequest{
		UserID:        userID,
		IdempotentKey: key,
		Amount:        amount,
		Type:          txType,
	})
}

func TestService_Submit_Validation(t *testing.T) {
	f := newServiceFixture()

	testCases := []struct {
		name          string
		req           SubmitRequest
		expectedError error
	}{
		{"empty user ID", SubmitRequest{IdempotentKey: "k", Amount: "1", Type: "CREDIT"}, errs.ErrInvalidUserID},
		{"empty idempotent key", SubmitRequest{UserID: "u", Amount: "1", Type: "CREDIT"}, errs.ErrInvalidIdempotentKey},
		{"bad type", SubmitRequest{UserID: "u", IdempotentKey: "k", Amount: "1", Type: "TRANSFER"}, errs.ErrInvalidTransactionType},
		{"bad amount", SubmitRequest{UserID: "u", IdempotentKey: "k", Amount: "-1", Type: "CREDIT"}, errs.ErrInvalidAmount},
		{"too many decimals", SubmitRequest{UserID: "u", IdempotentKey: "k", Amount: "1.234", Type: "CREDIT"}, errs.ErrInvalidAmount},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Submit(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.expectedError)
		})
	}

	// Nothing is stored for invalid requests.
	assert.Equal(t, 0, f.txns.count())
}

func TestService_Submit_CreditDebitFlow(t *testing.T) {
	f := newServiceFixture()

	result, err := submit(t, f, "user-1", "k1", "1", "CREDIT")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApplied, result.Status)
	assert.Equal(t, "1", result.Balance)
	assert.False(t, result.Replayed)

	result, err = submit(t, f, "user-1", "k2", "0.6", "DEBIT")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApplied, result.Status)
	assert.Equal(t, "0.4", result.Balance)

	// Third transaction would go negative and is rejected with a stored record.
	result, err = submit(t, f, "user-1", "k3", "0.6", "DEBIT")
	require.Error(t, err)
	assert.True(t, errs.IsNegativeBalanceError(err))
	require.NotNil(t, result)
	assert.Equal(t, entity.StatusRejected, result.Status)
	assert.Equal(t, "0.4", result.Balance)

	// The rejection never touched the balance and released the lock.
	assert.Equal(t, "0.4", f.aggs.balance("user-1"))
	assert.False(t, f.aggs.locked("user-1"))
	assert.Equal(t, 3, f.txns.count())

	// No safety-net action is left pending after a completed submit.
	assert.False(t, f.actions.Pending(lock.UnlockActionName("user-1")))

	// Only applied transactions publish events.
	assert.Equal(t, 2, f.publisher.count())
}

func TestService_Submit_IdempotentReplay(t *testing.T) {
	t.Run("applied result is replayed verbatim", func(t *testing.T) {
		f := newServiceFixture()

		first, err := submit(t, f, "user-1", "k1", "5", "CREDIT")
		require.NoError(t, err)
		assert.False(t, first.Replayed)

		second, err := submit(t, f, "user-1", "k1", "5", "CREDIT")
		require.NoError(t, err)
		assert.True(t, second.Replayed)
		assert.Equal(t, entity.StatusApplied, second.Status)
		assert.Equal(t, "5", second.Balance)

		// The credit applied exactly once.
		assert.Equal(t, "5", f.aggs.balance("user-1"))
		assert.Equal(t, 1, f.txns.count())
		assert.Equal(t, 1, f.publisher.count())
	})

	t.Run("rejected result replays its rejection", func(t *testing.T) {
		f := newServiceFixture()

		_, err := submit(t, f, "user-1", "k1", "1", "CREDIT")
		require.NoError(t, err)

		_, err = submit(t, f, "user-1", "k2", "2", "DEBIT")
		require.Error(t, err)

		result, err := submit(t, f, "user-1", "k2", "2", "DEBIT")
		require.Error(t, err)
		assert.True(t, errs.IsNegativeBalanceError(err))
		require.NotNil(t, result)
		assert.True(t, result.Replayed)
		assert.Equal(t, entity.StatusRejected, result.Status)
		assert.Equal(t, "1", result.Balance)
	})
}

func TestService_Submit_ConcurrentDistinctKeys(t *testing.T) {
	f := newServiceFixture()
	const workers = 20

	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := submit(t, f, "user-1", fmt.Sprintf("k-%d", i), "1", "CREDIT")
			errCh <- err
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		assert.NoError(t, err)
	}

	// Serialized by the aggregate lock: every credit lands exactly once.
	assert.Equal(t, "20", f.aggs.balance("user-1"))
	assert.Equal(t, workers, f.txns.count())
	assert.False(t, f.aggs.locked("user-1"))
}

func TestService_Submit_ConcurrentSameKey(t *testing.T) {
	f := newServiceFixture()
	const workers = 8

	var wg sync.WaitGroup
	results := make(chan *SubmitResult, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := submit(t, f, "user-1", "same-key", "1", "CREDIT")
			assert.NoError(t, err)
			results <- result
		}()
	}
	wg.Wait()
	close(results)

	replayed := 0
	for result := range results {
		require.NotNil(t, result)
		assert.Equal(t, entity.StatusApplied, result.Status)
		assert.Equal(t, "1", result.Balance)
		if result.Replayed {
			replayed++
		}
	}

	// Exactly one submission applied the credit; the rest replayed it.
	assert.Equal(t, workers-1, replayed)
	assert.Equal(t, "1", f.aggs.balance("user-1"))
	assert.Equal(t, 1, f.txns.count())
}

func TestService_Submit_RetryExhaustion(t *testing.T) {
	aggs := newFakeAggregateRepo()
	txns := newFakeTransactionRepo()
	actions := schedadapter.NewInMem()
	tp := realTimeProvider{}
	logger := nopLogger{}

	guard := lock.NewGuard(aggs, actions, tp, logger, lock.Config{})
	service := NewService(guard, aggs, txns, nil, tp, logger, RetryConfig{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
	})

	// Simulate a lock abandoned by another process.
	_, err := aggs.CreateLocked(context.Background(), "user-1")
	require.NoError(t, err)

	_, err = service.Submit(context.Background(), SubmitRequest{
		UserID:        "user-1",
		IdempotentKey: "k1",
		Amount:        "1",
		Type:          "CREDIT",
	})

	require.Error(t, err)
	assert.True(t, IsRetryExhausted(err))
	assert.Equal(t, 0, txns.count())
}

func TestService_Submit_RandomSequence(t *testing.T) {
	f := newServiceFixture()
	rng := rand.New(rand.NewSource(42))

	expected := decimal.Zero
	for i := 0; i < 200; i++ {
		amount := decimal.NewFromInt(int64(rng.Intn(1000) + 1)).Div(decimal.NewFromInt(100))
		txType := "CREDIT"
		if rng.Intn(2) == 0 {
			txType = "DEBIT"
		}

		result, err := submit(t, f, "user-1", fmt.Sprintf("seq-%d", i), amount.String(), txType)
		if txType == "DEBIT" && expected.Sub(amount).IsNegative() {
			require.Error(t, err, "step %d", i)
			assert.True(t, errs.IsNegativeBalanceError(err))
			assert.Equal(t, entity.StatusRejected, result.Status)
			continue
		}

		require.NoError(t, err, "step %d", i)
		if txType == "CREDIT" {
			expected = expected.Add(amount)
		} else {
			expected = expected.Sub(amount)
		}
		assert.Equal(t, expected.String(), result.Balance, "step %d", i)
	}

	assert.Equal(t, expected.String(), f.aggs.balance("user-1"))
	assert.False(t, f.aggs.locked("user-1"))
}
