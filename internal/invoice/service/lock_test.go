package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/millrun/internal/errs"
	"github.com/smallbiznis/millrun/internal/invoice/domain"
	orderdomain "github.com/smallbiznis/millrun/internal/order/domain"
	"github.com/smallbiznis/millrun/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocker(t *testing.T) (*miniredis.Miniredis, *ratelimit.Locker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, ratelimit.NewLocker(client)
}

func TestInvoiceLockHeldTimesOut(t *testing.T) {
	mr, locker := newLocker(t)
	f := newFixture(t, locker)
	f.svc.(*Service).lockWait = 20 * time.Millisecond
	ctx := context.Background()
	order := f.seedOrder(t, orderdomain.StatusCompleted, "10.00")

	key := orderLockKey(order.ID)
	token, ok, err := locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: order.ID})
	assert.ErrorIs(t, err, domain.ErrInvoiceLocked)
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))
	assert.True(t, f.balance(t).IsZero())

	require.NoError(t, locker.Release(ctx, key, token))
	_, err = f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: order.ID})
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))
}

func TestParallelPaymentsOnDistinctInvoices(t *testing.T) {
	_, locker := newLocker(t)
	f := newFixture(t, locker)
	ctx := context.Background()

	const n = 8
	invoices := make([]domain.Invoice, 0, n)
	for i := 0; i < n; i++ {
		order := f.seedOrder(t, orderdomain.StatusCompleted, "10.00")
		inv, err := f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: order.ID})
		require.NoError(t, err)
		invoices = append(invoices, inv)
	}
	require.True(t, f.balance(t).Equal(dec("80.00")))

	errCh := make(chan error, n)
	var wg sync.WaitGroup
	for _, inv := range invoices {
		wg.Add(1)
		go func(inv domain.Invoice) {
			defer wg.Done()
			_, err := f.svc.AddPayment(ctx, inv.ID, dec("1.00"))
			errCh <- err
		}(inv)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		assert.NoError(t, err)
	}
	assert.True(t, f.balance(t).Equal(dec("72.00")), "balance %s", f.balance(t))
	f.assertConserved(t)
}

func TestParallelPaymentsOnOneInvoiceWait(t *testing.T) {
	_, locker := newLocker(t)
	f := newFixture(t, locker)
	ctx := context.Background()

	order := f.seedOrder(t, orderdomain.StatusCompleted, "10.00")
	inv, err := f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: order.ID})
	require.NoError(t, err)

	const n = 4
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.AddPayment(ctx, inv.ID, dec("1.00"))
		}(i)
	}
	wg.Wait()

	for _, err := range results {
		assert.NoError(t, err)
	}
	got, err := f.svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.Equal(decimal.NewFromInt(n)), "paid %s", got.PaidAmount)
	assert.True(t, f.balance(t).Equal(dec("6.00")))
	f.assertConserved(t)
}
