package invoice

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicedesk/internal/core/apperror"
	"invoicedesk/internal/core/numerator"
	"invoicedesk/internal/domain"
)

// memRepo keeps invoices in a map; failCreate simulates a store outage after
// the number was taken.
type memRepo struct {
	items      map[string]*Invoice
	failCreate error
}

func newMemRepo() *memRepo { return &memRepo{items: map[string]*Invoice{}} }

func (r *memRepo) Create(_ context.Context, inv *Invoice) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	inv.ID = inv.InvoiceNumber
	r.items[inv.ID] = inv
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Invoice, error) {
	if inv, ok := r.items[id]; ok {
		return inv, nil
	}
	return nil, apperror.NewNotFound("invoice", id)
}

func (r *memRepo) FindOne(ctx context.Context, _ string, value any) (*Invoice, error) {
	id, _ := value.(string)
	return r.GetByID(ctx, id)
}

func (r *memRepo) Update(_ context.Context, inv *Invoice) (bool, error) {
	_, ok := r.items[inv.ID]
	r.items[inv.ID] = inv
	return ok, nil
}

func (r *memRepo) Delete(_ context.Context, id string) (bool, error) {
	_, ok := r.items[id]
	delete(r.items, id)
	return ok, nil
}

func (r *memRepo) List(context.Context, domain.ListFilter) (domain.ListResult[*Invoice], error) {
	return domain.ListResult[*Invoice]{}, nil
}

func newInvoice() *Invoice {
	return &Invoice{
		CustomerName: "Asha Traders",
		Items: []LineItem{
			{Description: "Bolt", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.RequireFromString("9.99"), TaxRate: decimal.NewFromInt(18)},
			{Description: "Nut", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.RequireFromString("0.45"), TaxRate: decimal.NewFromInt(5)},
		},
	}
}

func newTestService(repo Repository, seq numerator.Sequencer) *Service {
	return NewService(repo, seq, Config{AutoNumber: true, Format: numerator.DefaultConfig("INV")})
}

func TestService_CreateAssignsNextNumber(t *testing.T) {
	ctx := context.Background()
	seq := &numerator.MockSequencer{}
	svc := newTestService(newMemRepo(), seq)

	first := newInvoice()
	require.NoError(t, svc.Create(ctx, first))
	assert.Equal(t, "INV-00001", first.InvoiceNumber)
	assert.EqualValues(t, 1, first.Sequence)
	assert.False(t, first.CreatedAt.IsZero())

	second := newInvoice()
	require.NoError(t, svc.Create(ctx, second))
	assert.Equal(t, "INV-00002", second.InvoiceNumber)
}

func TestService_CreateKeepsReservedNumber(t *testing.T) {
	ctx := context.Background()
	seq := &numerator.MockSequencer{}
	svc := newTestService(newMemRepo(), seq)

	inv := newInvoice()
	inv.InvoiceNumber = " INV-00042 "
	require.NoError(t, svc.Create(ctx, inv))

	assert.Equal(t, "INV-00042", inv.InvoiceNumber)
	assert.EqualValues(t, 42, inv.Sequence)
	assert.Zero(t, seq.GetCurrent(ctx), "a reserved number must not consume another one")
}

func TestService_CreateWithoutAutoNumber(t *testing.T) {
	seq := &numerator.MockSequencer{}
	svc := NewService(newMemRepo(), seq, Config{})

	inv := newInvoice()
	require.NoError(t, svc.Create(context.Background(), inv))
	assert.Empty(t, inv.InvoiceNumber)
	assert.Zero(t, inv.Sequence)
}

func TestService_InvalidInvoiceConsumesNoNumber(t *testing.T) {
	ctx := context.Background()
	seq := &numerator.MockSequencer{}
	svc := newTestService(newMemRepo(), seq)

	err := svc.Create(ctx, &Invoice{CustomerName: "x"})
	assert.Equal(t, 400, apperror.GetHTTPStatus(err))
	assert.Zero(t, seq.GetCurrent(ctx))
}

func TestService_SequenceFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"store unavailable", numerator.ErrStoreUnavailable, 503},
		{"corrupted", numerator.ErrCorruptedState, 500},
		{"timeout", errors.Join(numerator.ErrStoreUnavailable, context.DeadlineExceeded), 504},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			seq := &numerator.MockSequencer{
				GetNextFunc: func(context.Context) (int64, error) { return 0, tt.err },
			}
			svc := newTestService(repo, seq)

			err := svc.Create(context.Background(), newInvoice())
			assert.Equal(t, tt.status, apperror.GetHTTPStatus(err))
			assert.ErrorIs(t, err, tt.err)
			assert.Empty(t, repo.items)
		})
	}
}

func TestService_FailedWriteLeavesGap(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	seq := &numerator.MockSequencer{}
	svc := newTestService(repo, seq)

	repo.failCreate = errors.New("connection reset")
	failed := newInvoice()
	require.Error(t, svc.Create(ctx, failed))
	assert.EqualValues(t, 1, failed.Sequence)

	repo.failCreate = nil
	next := newInvoice()
	require.NoError(t, svc.Create(ctx, next))
	assert.Equal(t, "INV-00002", next.InvoiceNumber)
}

func TestInvoice_Recalculate(t *testing.T) {
	inv := newInvoice()
	inv.Recalculate()

	assert.Equal(t, "29.97", inv.Items[0].Amount.StringFixed(2))
	assert.Equal(t, "5.39", inv.Items[0].TaxAmount.StringFixed(2))
	assert.Equal(t, "4.50", inv.Items[1].Amount.StringFixed(2))
	assert.Equal(t, "0.23", inv.Items[1].TaxAmount.StringFixed(2))
	assert.Equal(t, "34.47", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "5.62", inv.TaxTotal.StringFixed(2))
	assert.Equal(t, "40.09", inv.Total.StringFixed(2))
}

func TestInvoice_ValidateLines(t *testing.T) {
	inv := newInvoice()
	inv.Items[1].Quantity = decimal.Zero

	err := domain.ValidationError(inv.Validate(context.Background()))
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Details["fields"], "items")
}
