package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journal-api/models"
)

func TestChargePolicyQuote(t *testing.T) {
	p := ChargePolicy{BaseFee: 150, PageFee: 12.5, FreePages: 10, Currency: "eur"}
	q := p.Quote(14)
	assert.Equal(t, 150.0, q.BaseAmount)
	assert.Equal(t, 50.0, q.ExtraPageAmount)
	assert.Equal(t, 200.0, q.TotalAmount)
	assert.Equal(t, "EUR", q.Currency)

	short := p.Quote(3)
	assert.Zero(t, short.ExtraPageAmount)
	assert.Equal(t, 150.0, short.TotalAmount)

	assert.Equal(t, "USD", ChargePolicy{BaseFee: 1}.Quote(0).Currency)
	assert.False(t, ChargePolicy{Currency: "USD"}.Enabled())
}

func TestNormalizePaymentStatus(t *testing.T) {
	for raw, want := range map[string]string{
		"SUCCESS":   models.PaymentSuccess,
		" captured": models.PaymentSuccess,
		"pending":   models.PaymentPending,
		"declined":  models.PaymentFailed,
		"created":   models.PaymentCreated,
	} {
		got, ok := NormalizePaymentStatus(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	_, ok := NormalizePaymentStatus("refunded-ish")
	assert.False(t, ok)
}

func TestLedgerPaid(t *testing.T) {
	records := []models.PaymentRecord{
		{PaymentID: "a", Amount: 200, Status: models.PaymentFailed},
		{PaymentID: "b", Amount: 199.99, Status: models.PaymentSuccess},
	}
	assert.False(t, LedgerPaid(records, 200))
	records = append(records, models.PaymentRecord{PaymentID: "c", Amount: 200.001, Status: models.PaymentSuccess})
	assert.True(t, LedgerPaid(records, 200))
	assert.False(t, LedgerPaid(records, 0))
}

func TestApplyVerificationIsIdempotent(t *testing.T) {
	m := &models.Manuscript{ManuscriptID: 1, Charge: models.PublicationCharge{TotalAmount: 200, Currency: "USD"}}
	v := PaymentVerification{PaymentID: "pay_1", Amount: 200, Status: models.PaymentPending}

	_, change := ApplyVerification(m, v, testNow)
	assert.Equal(t, LedgerAppended, change)

	_, change = ApplyVerification(m, v, testNow)
	assert.Equal(t, LedgerUnchanged, change)
	require.Len(t, m.Payments, 1)

	v.Status = models.PaymentSuccess
	rec, change := ApplyVerification(m, v, testNow)
	assert.Equal(t, LedgerUpdated, change)
	assert.Equal(t, models.PaymentSuccess, rec.Status)

	v.Status = models.PaymentFailed
	rec, change = ApplyVerification(m, v, testNow)
	assert.Equal(t, LedgerUnchanged, change, "success is never downgraded")
	assert.Equal(t, models.PaymentSuccess, rec.Status)
	require.Len(t, m.Payments, 1)
}

func TestSettleCharge(t *testing.T) {
	m := &models.Manuscript{Charge: models.PublicationCharge{TotalAmount: 80}}
	m.Payments = []models.PaymentRecord{{PaymentID: "x", Amount: 80, Status: models.PaymentSuccess}}
	assert.False(t, settleCharge(m, testNow), "nothing was requested yet")

	requested := testNow
	m.Charge.RequestedAt = &requested
	assert.True(t, settleCharge(m, testNow))
	assert.True(t, m.Charge.Paid)
	assert.False(t, settleCharge(m, testNow), "already settled")
}
