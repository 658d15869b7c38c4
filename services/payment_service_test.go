package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journal-api/models"
	"journal-api/notify"
	"journal-api/repository"
)

func amount(v float64) *float64 { return &v }

func (f *fixture) accepted() *models.Manuscript {
	f.t.Helper()
	m := f.reviewed()
	got, err := f.manuscripts.Decide(f.ctx, f.chief, m.ManuscriptID, DecisionInput{Decision: "accept", Comments: "Well done."})
	require.NoError(f.t, err)
	return got
}

func TestPublishWithoutPaymentFails(t *testing.T) {
	f := newFixture(t)
	m := f.accepted()
	require.Equal(t, models.StageEditorAccepted, m.Stage)

	_, err := f.manuscripts.Publish(f.ctx, f.chief, m.ManuscriptID)
	requireKind(t, err, KindInvalidState)

	got := f.reload(m.ManuscriptID)
	assert.Equal(t, models.StageEditorAccepted, got.Stage)
	assert.Nil(t, got.PublishedAt)
}

func TestAcceptWithChargesRequestsPayment(t *testing.T) {
	f := newFixture(t)
	f.withCharges(ChargePolicy{BaseFee: 100, PageFee: 10, FreePages: 1, Currency: "usd"})
	m := f.accepted()

	assert.Equal(t, models.StagePaymentPending, m.Stage)
	assert.Equal(t, models.StatusAccepted, m.Status)
	assert.True(t, m.Charge.Requested())
	assert.Equal(t, 120.0, m.Charge.TotalAmount, "three pages, one free")
	assert.Equal(t, "USD", m.Charge.Currency)
	assert.Contains(t, f.events.Keys(), notify.PaymentRequested)
}

func TestPaymentThenPublish(t *testing.T) {
	f := newFixture(t)
	f.withCharges(ChargePolicy{BaseFee: 250, Currency: "USD"})
	m := f.accepted()

	order, err := f.payments.CreateOrder(f.ctx, f.author, m.ManuscriptID)
	require.NoError(t, err)
	assert.Equal(t, 250.0, order.Amount)
	assert.NotEmpty(t, order.OrderID)

	res, err := f.payments.Verify(f.ctx, f.author, VerifyPaymentInput{
		ManuscriptID: m.ManuscriptID,
		PaymentID:    order.OrderID,
		Amount:       amount(250),
		Status:       "succeeded",
		Metadata:     map[string]interface{}{"gateway": "test"},
	})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, models.PaymentSuccess, res.Record.Status)
	assert.True(t, res.Charge.Paid)
	assert.Contains(t, f.events.Keys(), notify.PaymentConfirmed)

	got, err := f.manuscripts.Publish(f.ctx, f.chief, m.ManuscriptID)
	require.NoError(t, err)
	assert.Equal(t, models.StagePublished, got.Stage)
	assert.Equal(t, models.StatusPublished, got.Status)
	require.NotNil(t, got.PublishedAt)
	assert.Len(t, got.Payments, 1, "the order record was updated in place")
}

func TestVerifyIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.withCharges(ChargePolicy{BaseFee: 90, Currency: "USD"})
	m := f.accepted()
	in := VerifyPaymentInput{ManuscriptID: m.ManuscriptID, PaymentID: "pay_123", Amount: amount(90), Status: "success"}

	first, err := f.payments.Verify(f.ctx, f.author, in)
	require.NoError(t, err)
	assert.True(t, first.Changed)
	version := f.reload(m.ManuscriptID).Version

	second, err := f.payments.Verify(f.ctx, f.author, in)
	require.NoError(t, err)
	assert.False(t, second.Changed)

	got := f.reload(m.ManuscriptID)
	assert.Len(t, got.Payments, 1)
	assert.Equal(t, version, got.Version)

	history, err := f.store.Manuscripts().History(f.ctx, m.ManuscriptID)
	require.NoError(t, err)
	settled := 0
	for _, h := range history {
		if h.Action == string(ActionVerifyPayment) {
			settled++
		}
	}
	assert.Equal(t, 1, settled)
}

func TestVerifyRejectsUnrequestedAndForeignPayers(t *testing.T) {
	f := newFixture(t)
	m := f.accepted()
	in := VerifyPaymentInput{ManuscriptID: m.ManuscriptID, PaymentID: "pay_1", Amount: amount(10), Status: "success"}

	_, err := f.payments.Verify(f.ctx, f.author, in)
	requireKind(t, err, KindInvalidState)

	_, err = f.payments.CreateOrder(f.ctx, f.author, m.ManuscriptID)
	requireKind(t, err, KindInvalidState)

	_, err = f.payments.Verify(f.ctx, f.reviewer, in)
	requireKind(t, err, KindForbidden)

	_, err = f.payments.Verify(f.ctx, nil, in)
	requireKind(t, err, KindUnauthenticated)

	in.Status = "mystery"
	_, err = f.payments.Verify(f.ctx, f.author, in)
	requireKind(t, err, KindValidation)

	in.Status = "success"
	in.Amount = nil
	_, err = f.payments.Verify(f.ctx, f.author, in)
	requireKind(t, err, KindValidation)
}

func TestRequestPaymentNeedsAmountWithoutPolicy(t *testing.T) {
	f := newFixture(t)
	m := f.accepted()

	_, err := f.manuscripts.RequestPayment(f.ctx, f.chief, m.ManuscriptID, PaymentRequestInput{})
	requireKind(t, err, KindValidation)

	_, err = f.manuscripts.RequestPayment(f.ctx, f.editor, m.ManuscriptID, PaymentRequestInput{Amount: amount(40)})
	requireKind(t, err, KindForbidden)

	got, err := f.manuscripts.RequestPayment(f.ctx, f.chief, m.ManuscriptID, PaymentRequestInput{Amount: amount(40), Currency: "eur"})
	require.NoError(t, err)
	assert.Equal(t, models.StagePaymentPending, got.Stage)
	assert.Equal(t, 40.0, got.Charge.TotalAmount)
	assert.Equal(t, "EUR", got.Charge.Currency)

	_, err = f.payments.Verify(f.ctx, f.author, VerifyPaymentInput{ManuscriptID: m.ManuscriptID, PaymentID: "p", Amount: amount(39.99), Status: "success"})
	require.NoError(t, err)
	_, err = f.manuscripts.Publish(f.ctx, f.chief, m.ManuscriptID)
	requireKind(t, err, KindInvalidState)
}

func TestRequestPaymentBeforeAcceptanceFails(t *testing.T) {
	f := newFixture(t)
	m := f.reviewed()
	_, err := f.manuscripts.RequestPayment(f.ctx, f.chief, m.ManuscriptID, PaymentRequestInput{Amount: amount(40)})
	requireKind(t, err, KindInvalidState)
}

func TestListPayments(t *testing.T) {
	f := newFixture(t)
	f.withCharges(ChargePolicy{BaseFee: 75, Currency: "USD"})
	m := f.accepted()
	_, err := f.payments.Verify(f.ctx, f.author, VerifyPaymentInput{ManuscriptID: m.ManuscriptID, PaymentID: "a", Amount: amount(75), Status: "failed"})
	require.NoError(t, err)
	_, err = f.payments.Verify(f.ctx, f.author, VerifyPaymentInput{ManuscriptID: m.ManuscriptID, PaymentID: "b", Amount: amount(75), Status: "paid"})
	require.NoError(t, err)

	rows, err := f.payments.ListPayments(f.ctx, f.chief, repository.PaymentFilter{Status: "SUCCESS"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0].PaymentID)

	_, err = f.payments.ListPayments(f.ctx, f.author, repository.PaymentFilter{})
	requireKind(t, err, KindForbidden)
}
