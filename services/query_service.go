package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"journal-api/models"
	"journal-api/notify"
	"journal-api/repository"
	"journal-api/utils"
)

type QueryInput struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Subject string `json:"subject" validate:"required,max=255"`
	Message string `json:"message" validate:"required,max=5000"`
}

type ReplyInput struct {
	Reply string `json:"reply" validate:"required,max=5000"`
}

// QueryService runs the help desk. Queries are not tied to manuscripts.
type QueryService struct {
	Deps
}

func NewQueryService(deps Deps) *QueryService {
	return &QueryService{Deps: deps.withDefaults()}
}

// Create accepts a query from anyone. A signed-in caller is linked to it
// and their account details fill in missing fields.
func (s *QueryService) Create(ctx context.Context, actor *models.User, in QueryInput) (*models.Query, error) {
	if actor != nil {
		if strings.TrimSpace(in.Name) == "" {
			in.Name = actor.DisplayName()
		}
		if strings.TrimSpace(in.Email) == "" {
			in.Email = actor.Email
		}
	}
	in.Name = utils.SanitizeInput(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Subject = utils.SanitizeInput(in.Subject)
	in.Message = utils.SanitizeInput(in.Message)
	if fields := utils.ValidateStruct(in); fields != nil {
		return nil, ValidationError(fields)
	}

	q := &models.Query{
		Name:    in.Name,
		Email:   in.Email,
		Subject: in.Subject,
		Message: in.Message,
		Status:  models.QueryPending,
	}
	if actor != nil {
		id := actor.UserID
		q.UserID = &id
	}
	if err := s.Store.Queries().Create(ctx, q); err != nil {
		return nil, storeErr(err, "query")
	}
	var out outbox
	out.add(notify.New(notify.QueryReceived, map[string]string{
		"name":    q.Name,
		"email":   q.Email,
		"subject": q.Subject,
		"message": q.Message,
	}, s.chiefRecipients(ctx, s.Store)...))
	s.flush(&out)
	return q, nil
}

func (s *QueryService) Pending(ctx context.Context, actor *models.User) ([]models.Query, error) {
	if err := RequireRole(actor, models.RoleEditorInChief); err != nil {
		return nil, err
	}
	rows, err := s.Store.Queries().List(ctx, repository.QueryFilter{Status: models.QueryPending})
	if err != nil {
		return nil, storeErr(err, "query")
	}
	return rows, nil
}

// Mine lists the caller's queries, including ones sent anonymously from the
// same address.
func (s *QueryService) Mine(ctx context.Context, actor *models.User) ([]models.Query, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	rows, err := s.Store.Queries().List(ctx, repository.QueryFilter{UserID: actor.UserID, Email: actor.Email})
	if err != nil {
		return nil, storeErr(err, "query")
	}
	return rows, nil
}

// Reply answers a pending query and emails the submitter.
func (s *QueryService) Reply(ctx context.Context, actor *models.User, id int, in ReplyInput) (*models.Query, error) {
	if err := RequireRole(actor, models.RoleEditorInChief); err != nil {
		return nil, err
	}
	in.Reply = utils.SanitizeInput(in.Reply)
	if fields := utils.ValidateStruct(in); fields != nil {
		return nil, ValidationError(fields)
	}

	var (
		answered *models.Query
		out      outbox
	)
	err := s.Store.Transaction(ctx, func(tx repository.Store) error {
		q, err := tx.Queries().Get(ctx, id)
		if err != nil {
			return storeErr(err, "query")
		}
		if q.Status == models.QueryAnswered {
			return InvalidState("query has already been answered")
		}
		now := s.Now()
		replier := actor.UserID
		q.Reply = &in.Reply
		q.RepliedBy = &replier
		q.RepliedAt = &now
		q.Status = models.QueryAnswered
		if err := tx.Queries().Update(ctx, q); err != nil {
			return storeErr(err, "query")
		}
		to := notify.Recipient{Email: q.Email, Name: q.Name}
		if q.UserID != nil {
			to.UserID = *q.UserID
		}
		out.add(notify.New(notify.QueryAnswered, map[string]string{
			"subject": q.Subject,
			"reply":   in.Reply,
		}, to))
		answered = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.flush(&out)
	s.Log.Info("query answered", zap.Int("query_id", id), zap.Int("replied_by", actor.UserID))
	return answered, nil
}
