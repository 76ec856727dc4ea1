package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/slot-reservation/internal/model"
)

func TestInvoiceNumber(t *testing.T) {
	assert.Equal(t, "FAC-20260501-000042", InvoiceNumber(fixtureStart, 42))
	assert.Equal(t, "FAC-20261231-1234567", InvoiceNumber(time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC), 1234567))
}

func TestInvoiceAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.addVenue(supplierID, "Five Park", model.CategorySmall)
	r := f.addPaidReservation(customerID, f.addSlot(v.ID, fixtureStart.Add(48*time.Hour), 3500), fixtureStart)

	n, err := f.invoices.Reconcile(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	for _, p := range []Principal{customer, supplier, admin} {
		inv, err := f.invoices.Get(ctx, p, r.ID)
		require.NoError(t, err, p.Role)
		assert.Equal(t, "FAC-20260501-"+pad6(r.ID), inv.Number)
		assert.Equal(t, int64(3500), inv.AmountCents)
	}

	other := NewPrincipal(99, model.RoleCustomer)
	for _, p := range []Principal{other, rival} {
		_, err := f.invoices.Get(ctx, p, r.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	_, err = f.invoices.Get(ctx, admin, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReconcileIssuesMissingInvoices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.addVenue(supplierID, "Five Park", model.CategorySmall)
	for i := 0; i < 3; i++ {
		f.addPaidReservation(customerID, f.addSlot(v.ID, fixtureStart.Add(time.Duration(48+2*i)*time.Hour), 3500), fixtureStart)
	}

	n, err := f.invoices.Reconcile(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = f.invoices.Reconcile(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = f.invoices.Reconcile(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 3, f.db.count("invoices"))

	f.db.failInvoice = true
	f.addPaidReservation(customerID, f.addSlot(v.ID, fixtureStart.Add(72*time.Hour), 3500), fixtureStart)
	_, err = f.invoices.Reconcile(ctx, 10)
	assert.ErrorIs(t, err, errInvoiceFailed)
}
