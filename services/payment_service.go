package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"journal-api/models"
	"journal-api/notify"
	"journal-api/repository"
	"journal-api/utils"
)

const (
	ActionCreateOrder   Action = "create_order"
	ActionVerifyPayment Action = "verify_payment"
)

type VerifyPaymentInput struct {
	ManuscriptID int                    `json:"manuscriptId" validate:"required,gt=0"`
	PaymentID    string                 `json:"paymentId" validate:"required,max=128"`
	Amount       *float64               `json:"amount" validate:"required,gte=0"`
	Status       string                 `json:"status" validate:"required"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// Order is handed to the payment gateway by the client.
type Order struct {
	OrderID      string    `json:"orderId"`
	ManuscriptID int       `json:"manuscriptId"`
	Amount       float64   `json:"amount"`
	Currency     string    `json:"currency"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PaymentResult reports the ledger after a verification.
type PaymentResult struct {
	Record  models.PaymentRecord     `json:"payment"`
	Charge  models.PublicationCharge `json:"publicationCharge"`
	Changed bool                     `json:"changed"`
}

type PaymentService struct {
	Deps
}

func NewPaymentService(deps Deps) *PaymentService {
	return &PaymentService{Deps: deps.withDefaults()}
}

func canPay(actor *models.User, m *models.Manuscript) bool {
	if actor == nil || !actor.IsActive {
		return false
	}
	return m.IsAuthor(actor.UserID) || HasCapability(actor, models.RoleEditorInChief)
}

func requireOutstandingCharge(m *models.Manuscript) error {
	if !m.Charge.Requested() || m.Charge.TotalAmount <= 0 {
		return InvalidState("no publication charge has been requested for this manuscript")
	}
	if m.Charge.Paid {
		return InvalidState("publication charge is already paid")
	}
	return nil
}

// CreateOrder opens a ledger record for the outstanding charge.
func (s *PaymentService) CreateOrder(ctx context.Context, actor *models.User, manuscriptID int) (*Order, error) {
	if actor == nil {
		return nil, Unauthenticated()
	}
	var order *Order
	_, err := s.mutateManuscript(ctx, manuscriptID, ActionCreateOrder, func(ctx context.Context, tx repository.Store, m *models.Manuscript, out *outbox) error {
		if !canPay(actor, m) {
			return Forbidden("")
		}
		if err := requireOutstandingCharge(m); err != nil {
			return err
		}
		now := s.Now()
		rec := &models.PaymentRecord{
			ManuscriptID: m.ManuscriptID,
			PaymentID:    "order_" + uuid.NewString(),
			Amount:       m.Charge.TotalAmount,
			Currency:     m.Charge.Currency,
			Status:       models.PaymentCreated,
			RecordedBy:   actor.UserID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Manuscripts().AddPayment(ctx, rec); err != nil {
			return storeErr(err, "payment")
		}
		order = &Order{
			OrderID:      rec.PaymentID,
			ManuscriptID: m.ManuscriptID,
			Amount:       rec.Amount,
			Currency:     rec.Currency,
			CreatedAt:    now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Verify records a gateway result. Repeating a verification never adds a
// second record for the same paymentId.
func (s *PaymentService) Verify(ctx context.Context, actor *models.User, in VerifyPaymentInput) (*PaymentResult, error) {
	if actor == nil {
		return nil, Unauthenticated()
	}
	in.PaymentID = strings.TrimSpace(in.PaymentID)
	if fields := utils.ValidateStruct(in); fields != nil {
		return nil, ValidationError(fields)
	}
	status, ok := NormalizePaymentStatus(in.Status)
	if !ok {
		return nil, fieldError("status", "unknown payment status")
	}

	var result *PaymentResult
	m, err := s.mutateManuscript(ctx, in.ManuscriptID, ActionVerifyPayment, func(ctx context.Context, tx repository.Store, m *models.Manuscript, out *outbox) error {
		if !canPay(actor, m) {
			return Forbidden("")
		}
		if !m.Charge.Requested() {
			return InvalidState("no publication charge has been requested for this manuscript")
		}
		now := s.Now()
		rec, change := ApplyVerification(m, PaymentVerification{
			PaymentID: in.PaymentID,
			Amount:    *in.Amount,
			Status:    status,
			Metadata:  models.JSONMap(in.Metadata),
			ActorID:   actor.UserID,
		}, now)
		result = &PaymentResult{Record: *rec, Changed: change != LedgerUnchanged}

		switch change {
		case LedgerUnchanged:
			return errNoChange
		case LedgerAppended:
			if err := tx.Manuscripts().AddPayment(ctx, rec); err != nil {
				return storeErr(err, "payment")
			}
		case LedgerUpdated:
			if err := tx.Manuscripts().UpdatePayment(ctx, rec); err != nil {
				return storeErr(err, "payment")
			}
		}
		result.Record = *rec

		if settleCharge(m, now) {
			from := m.Stage
			if err := s.recordHistory(ctx, tx, m, &from, ActionVerifyPayment, actor.UserID,
				fmt.Sprintf("payment %s settled the publication charge", rec.PaymentID)); err != nil {
				return err
			}
			recipients := append(s.authorRecipients(ctx, tx, m), s.chiefRecipients(ctx, tx)...)
			out.add(notify.New(notify.PaymentConfirmed, chargeData(m), recipients...))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Charge = m.Charge
	return result, nil
}

// ListPayments is the editor-in-chief's ledger view across manuscripts.
func (s *PaymentService) ListPayments(ctx context.Context, actor *models.User, f repository.PaymentFilter) ([]models.PaymentRecord, error) {
	if err := RequireRole(actor, models.RoleEditorInChief); err != nil {
		return nil, err
	}
	if f.Status != "" {
		status, ok := NormalizePaymentStatus(f.Status)
		if !ok {
			return nil, fieldError("status", "unknown payment status")
		}
		f.Status = status
	}
	rows, err := s.Store.Manuscripts().ListPayments(ctx, f)
	if err != nil {
		return nil, storeErr(err, "payment")
	}
	return rows, nil
}
