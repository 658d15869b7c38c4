package services

import (
	"math"
	"strings"
	"time"

	"journal-api/models"
)

// ChargePolicy is the configured article processing charge.
type ChargePolicy struct {
	BaseFee   float64
	PageFee   float64
	FreePages int
	Currency  string
}

// Enabled reports whether accepted manuscripts owe anything.
func (p ChargePolicy) Enabled() bool {
	return p.BaseFee > 0 || p.PageFee > 0
}

// Quote prices a manuscript of the given length.
func (p ChargePolicy) Quote(pages int) models.PublicationCharge {
	extraPages := pages - p.FreePages
	if extraPages < 0 {
		extraPages = 0
	}
	extra := roundCents(float64(extraPages) * p.PageFee)
	base := roundCents(p.BaseFee)
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = "USD"
	}
	return models.PublicationCharge{
		BaseAmount:      base,
		ExtraPageAmount: extra,
		TotalAmount:     roundCents(base + extra),
		Currency:        currency,
	}
}

func toCents(v float64) int64 { return int64(math.Round(v * 100)) }

func roundCents(v float64) float64 { return float64(toCents(v)) / 100 }

// NormalizePaymentStatus maps gateway vocabularies onto the ledger statuses.
func NormalizePaymentStatus(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success", "succeeded", "successful", "paid", "captured", "completed":
		return models.PaymentSuccess, true
	case "pending", "processing", "authorized":
		return models.PaymentPending, true
	case "failed", "failure", "declined", "cancelled", "canceled", "error":
		return models.PaymentFailed, true
	case "created":
		return models.PaymentCreated, true
	}
	return "", false
}

// LedgerPaid reports whether at least one successful record covers total to
// the cent.
func LedgerPaid(records []models.PaymentRecord, total float64) bool {
	if total <= 0 {
		return false
	}
	want := toCents(total)
	for _, r := range records {
		if r.Status == models.PaymentSuccess && toCents(r.Amount) == want {
			return true
		}
	}
	return false
}

// PaymentVerification is a gateway result handed to the ledger.
type PaymentVerification struct {
	PaymentID string
	Amount    float64
	Status    string
	Metadata  models.JSONMap
	ActorID   int
}

// LedgerChange describes what ApplyVerification did.
type LedgerChange int

const (
	LedgerUnchanged LedgerChange = iota
	LedgerAppended
	LedgerUpdated
)

// ApplyVerification folds v into the manuscript's ledger in memory. A
// repeated paymentId never adds a second record: an identical repeat is a
// no-op, a status change updates the record in place, and a successful
// record is never downgraded.
func ApplyVerification(m *models.Manuscript, v PaymentVerification, now time.Time) (*models.PaymentRecord, LedgerChange) {
	if existing := m.FindPayment(v.PaymentID); existing != nil {
		if existing.Status == v.Status && toCents(existing.Amount) == toCents(v.Amount) {
			return existing, LedgerUnchanged
		}
		if existing.Status == models.PaymentSuccess {
			return existing, LedgerUnchanged
		}
		existing.Status = v.Status
		existing.Amount = roundCents(v.Amount)
		if len(v.Metadata) > 0 {
			if existing.Metadata == nil {
				existing.Metadata = models.JSONMap{}
			}
			for k, val := range v.Metadata {
				existing.Metadata[k] = val
			}
		}
		existing.UpdatedAt = now
		return existing, LedgerUpdated
	}

	rec := models.PaymentRecord{
		ManuscriptID: m.ManuscriptID,
		PaymentID:    v.PaymentID,
		Amount:       roundCents(v.Amount),
		Currency:     m.Charge.Currency,
		Status:       v.Status,
		Metadata:     v.Metadata,
		RecordedBy:   v.ActorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.Payments = append(m.Payments, rec)
	return &m.Payments[len(m.Payments)-1], LedgerAppended
}

// settleCharge flips the charge to paid once the ledger covers it. It
// returns true on the transition.
func settleCharge(m *models.Manuscript, now time.Time) bool {
	if m.Charge.Paid || !m.Charge.Requested() {
		return false
	}
	if !LedgerPaid(m.Payments, m.Charge.TotalAmount) {
		return false
	}
	m.Charge.Paid = true
	m.Charge.PaidAt = &now
	return true
}
