package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"journal-api/models"
	"journal-api/notify"
	"journal-api/repository"
)

// PublicAuthor is the author entry shown to anonymous readers.
type PublicAuthor struct {
	Name            string  `json:"name"`
	Affiliation     *string `json:"affiliation,omitempty"`
	OrcidID         *string `json:"orcidId,omitempty"`
	IsCorresponding bool    `json:"isCorresponding"`
}

// PublicManuscript is the catalog entry of an accepted or published paper.
type PublicManuscript struct {
	ID          int            `json:"id"`
	Title       string         `json:"title"`
	Abstract    string         `json:"abstract"`
	Keywords    []string       `json:"keywords"`
	Domain      string         `json:"domain"`
	Authors     []PublicAuthor `json:"authors"`
	Status      models.Status  `json:"status"`
	Selected    bool           `json:"selected"`
	Pages       int            `json:"pages"`
	SubmittedAt time.Time      `json:"submittedAt"`
	DecidedAt   *time.Time     `json:"acceptedAt,omitempty"`
	PublishedAt *time.Time     `json:"publishedAt,omitempty"`
}

type CatalogQuery struct {
	Page     int
	Limit    int
	Search   string
	Domain   string
	Selected *bool
}

type CatalogPage struct {
	Items []PublicManuscript `json:"manuscripts"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// CatalogService serves the public listings from a short-lived cache. It is
// also a notification sink: workflow events that change what is public
// drop the cached pages.
type CatalogService struct {
	store repository.Store
	cache *cache.Cache
}

func NewCatalogService(store repository.Store, ttl time.Duration) *CatalogService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CatalogService{store: store, cache: cache.New(ttl, 2*ttl)}
}

var (
	acceptedStages  = []models.Stage{models.StageEditorAccepted, models.StagePaymentPending}
	publishedStages = []models.Stage{models.StagePublished}
)

func (s *CatalogService) Accepted(ctx context.Context, q CatalogQuery) (*CatalogPage, error) {
	return s.list(ctx, "accepted", acceptedStages, q)
}

func (s *CatalogService) Published(ctx context.Context, q CatalogQuery) (*CatalogPage, error) {
	return s.list(ctx, "published", publishedStages, q)
}

func (s *CatalogService) list(ctx context.Context, name string, stages []models.Stage, q CatalogQuery) (*CatalogPage, error) {
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	selected := "any"
	if q.Selected != nil {
		selected = fmt.Sprint(*q.Selected)
	}
	key := fmt.Sprintf("%s|%d|%d|%s|%s|%s", name, page, limit,
		strings.ToLower(strings.TrimSpace(q.Search)), strings.ToLower(strings.TrimSpace(q.Domain)), selected)
	if x, found := s.cache.Get(key); found {
		return x.(*CatalogPage), nil
	}

	rows, total, err := s.store.Manuscripts().List(ctx, repository.ManuscriptFilter{
		Stages:   stages,
		Selected: q.Selected,
		Domain:   strings.TrimSpace(q.Domain),
		Search:   strings.TrimSpace(q.Search),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return nil, storeErr(err, "manuscript")
	}
	out := &CatalogPage{Items: make([]PublicManuscript, 0, len(rows)), Total: total, Page: page, Limit: limit}
	for i := range rows {
		out.Items = append(out.Items, publicView(&rows[i]))
	}
	s.cache.Set(key, out, cache.DefaultExpiration)
	return out, nil
}

// PublishedByID returns one published manuscript; anything else is not found.
func (s *CatalogService) PublishedByID(ctx context.Context, id int) (*PublicManuscript, error) {
	key := fmt.Sprintf("published-id|%d", id)
	if x, found := s.cache.Get(key); found {
		return x.(*PublicManuscript), nil
	}
	m, err := s.store.Manuscripts().Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "manuscript")
	}
	if m.Stage != models.StagePublished {
		return nil, NotFound("manuscript")
	}
	view := publicView(m)
	s.cache.Set(key, &view, cache.DefaultExpiration)
	return &view, nil
}

func publicView(m *models.Manuscript) PublicManuscript {
	view := PublicManuscript{
		ID:          m.ManuscriptID,
		Title:       m.Title,
		Abstract:    m.Abstract,
		Keywords:    append([]string{}, m.Keywords...),
		Domain:      m.Domain,
		Status:      m.Status,
		Selected:    m.Selected,
		Pages:       m.File.Pages,
		SubmittedAt: m.SubmittedAt,
		DecidedAt:   m.DecidedAt,
		PublishedAt: m.PublishedAt,
	}
	for _, a := range m.Authors {
		entry := PublicAuthor{IsCorresponding: a.IsCorresponding}
		if a.User != nil {
			entry.Name = a.User.DisplayName()
			entry.Affiliation = a.User.Affiliation
			if a.User.OrcidVerified {
				entry.OrcidID = a.User.OrcidID
			}
		}
		view.Authors = append(view.Authors, entry)
	}
	return view
}

func (s *CatalogService) Invalidate() {
	s.cache.Flush()
}

func (s *CatalogService) Name() string { return "catalog" }

// Deliver drops cached pages when a manuscript enters or leaves the public
// listings.
func (s *CatalogService) Deliver(_ context.Context, ev notify.Event) error {
	switch ev.Key {
	case notify.DecisionRecorded, notify.PaymentRequested, notify.ManuscriptPublished, notify.SelectionChanged:
		s.Invalidate()
	}
	return nil
}
