package models

import "time"

// Stage is the canonical pipeline position of a manuscript. It is persisted
// as the workflow status; the coarse Status is always derived from it.
type Stage string

const (
	StageSubmitted         Stage = "SUBMITTED"
	StageUnderReview       Stage = "UNDER_REVIEW"
	StageReviewInProgress  Stage = "REVIEW_IN_PROGRESS"
	StageReviewAccepted    Stage = "REVIEW_ACCEPTED"
	StageRevisionsRequired Stage = "REVISIONS_REQUIRED"
	StageRejected          Stage = "REJECTED"
	StageEditorAccepted    Stage = "EDITOR_ACCEPTED"
	StagePaymentPending    Stage = "PAYMENT_PENDING"
	StagePublished         Stage = "PUBLISHED"
)

// Status is the business-facing manuscript status.
type Status string

const (
	StatusSubmitted         Status = "submitted"
	StatusUnderReview       Status = "under_review"
	StatusRevisionsRequired Status = "revisions_required"
	StatusAccepted          Status = "accepted"
	StatusRejected          Status = "rejected"
	StatusPublished         Status = "published"
	StatusSelected          Status = "selected"
)

var stageStatus = map[Stage]Status{
	StageSubmitted:         StatusSubmitted,
	StageUnderReview:       StatusUnderReview,
	StageReviewInProgress:  StatusUnderReview,
	StageReviewAccepted:    StatusUnderReview,
	StageRevisionsRequired: StatusRevisionsRequired,
	StageRejected:          StatusRejected,
	StageEditorAccepted:    StatusAccepted,
	StagePaymentPending:    StatusAccepted,
	StagePublished:         StatusPublished,
}

// Status projects the stage onto the coarse status.
func (s Stage) Status() Status {
	return stageStatus[s]
}

func (s Stage) Valid() bool {
	_, ok := stageStatus[s]
	return ok
}

// StagesFor returns every stage that projects onto the given status.
func StagesFor(status Status) []Stage {
	var out []Stage
	for _, st := range AllStages() {
		if st.Status() == status {
			out = append(out, st)
		}
	}
	return out
}

func AllStages() []Stage {
	return []Stage{
		StageSubmitted, StageUnderReview, StageReviewInProgress, StageReviewAccepted,
		StageRevisionsRequired, StageRejected, StageEditorAccepted, StagePaymentPending,
		StagePublished,
	}
}

// PublicationCharge is the article processing charge requested after
// acceptance.
type PublicationCharge struct {
	BaseAmount      float64    `gorm:"column:base_amount" json:"baseAmount"`
	ExtraPageAmount float64    `gorm:"column:extra_page_amount" json:"extraPageAmount"`
	TotalAmount     float64    `gorm:"column:total_amount" json:"totalAmount"`
	Currency        string     `gorm:"column:currency;size:3" json:"currency"`
	Paid            bool       `gorm:"column:paid" json:"paid"`
	RequestedAt     *time.Time `gorm:"column:requested_at" json:"requestedAt,omitempty"`
	PaidAt          *time.Time `gorm:"column:paid_at" json:"paidAt,omitempty"`
}

func (c PublicationCharge) Requested() bool {
	return c.RequestedAt != nil
}

type Manuscript struct {
	ManuscriptID          int        `gorm:"primaryKey;column:manuscript_id" json:"id"`
	Title                 string     `gorm:"column:title;size:500" json:"title"`
	Abstract              string     `gorm:"column:abstract;type:text" json:"abstract"`
	Keywords              StringList `gorm:"column:keywords;type:text" json:"keywords"`
	Domain                string     `gorm:"column:domain;size:255;index" json:"domain"`
	SubmittedBy           int        `gorm:"column:submitted_by;index" json:"submittedBy"`
	CorrespondingAuthorID int        `gorm:"column:corresponding_author_id" json:"correspondingAuthor"`
	File                  FileRef    `gorm:"embedded;embeddedPrefix:file_" json:"file"`
	Stage                 Stage      `gorm:"column:workflow_status;size:32;index" json:"workflowStatus"`
	Status                Status     `gorm:"column:status;size:32;index" json:"status"`
	Selected              bool       `gorm:"column:selected" json:"selected"`
	CurrentRound          int        `gorm:"column:current_round" json:"currentRound"`

	Charge PublicationCharge `gorm:"embedded;embeddedPrefix:charge_" json:"publicationCharge"`

	SubmittedAt time.Time  `gorm:"column:submitted_at" json:"submittedAt"`
	DecidedAt   *time.Time `gorm:"column:decided_at" json:"decidedAt,omitempty"`
	PublishedAt *time.Time `gorm:"column:published_at" json:"publishedAt,omitempty"`
	Version     int        `gorm:"column:version" json:"version"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"column:updated_at" json:"updatedAt"`

	Authors   []ManuscriptAuthor   `gorm:"foreignKey:ManuscriptID" json:"authors"`
	Revisions []ManuscriptRevision `gorm:"foreignKey:ManuscriptID" json:"revisions"`
	Editors   []ManuscriptEditor   `gorm:"foreignKey:ManuscriptID" json:"assignedEditors"`
	Payments  []PaymentRecord      `gorm:"foreignKey:ManuscriptID" json:"payments"`
}

// ManuscriptAuthor is one entry of the ordered author list.
type ManuscriptAuthor struct {
	AuthorID        int   `gorm:"primaryKey;column:author_id" json:"-"`
	ManuscriptID    int   `gorm:"column:manuscript_id;index" json:"-"`
	UserID          int   `gorm:"column:user_id;index" json:"user"`
	IsCorresponding bool  `gorm:"column:is_corresponding" json:"isCorresponding"`
	Order           int   `gorm:"column:author_order" json:"order"`
	User            *User `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

// ManuscriptRevision records one resubmission. Round is the round the
// revision opened.
type ManuscriptRevision struct {
	RevisionID   int       `gorm:"primaryKey;column:revision_id" json:"-"`
	ManuscriptID int       `gorm:"column:manuscript_id;index" json:"-"`
	Round        int       `gorm:"column:round" json:"round"`
	SubmittedAt  time.Time `gorm:"column:submitted_at" json:"submittedAt"`
	Notes        string    `gorm:"column:notes;type:text" json:"notes"`
	File         FileRef   `gorm:"embedded;embeddedPrefix:file_" json:"file"`
}

type ManuscriptEditor struct {
	ID           int       `gorm:"primaryKey;column:id" json:"-"`
	ManuscriptID int       `gorm:"column:manuscript_id;uniqueIndex:idx_manuscript_editor" json:"-"`
	EditorID     int       `gorm:"column:editor_id;uniqueIndex:idx_manuscript_editor" json:"editor"`
	AssignedBy   int       `gorm:"column:assigned_by" json:"assignedBy"`
	AssignedAt   time.Time `gorm:"column:assigned_at" json:"assignedAt"`
}

// Payment record statuses.
const (
	PaymentCreated = "created"
	PaymentPending = "pending"
	PaymentSuccess = "success"
	PaymentFailed  = "failed"
)

// PaymentRecord is one entry of the manuscript's payment ledger.
type PaymentRecord struct {
	RecordID     int       `gorm:"primaryKey;column:record_id" json:"-"`
	ManuscriptID int       `gorm:"column:manuscript_id;uniqueIndex:idx_payment_ref" json:"manuscriptId"`
	PaymentID    string    `gorm:"column:payment_id;size:128;uniqueIndex:idx_payment_ref" json:"id"`
	Amount       float64   `gorm:"column:amount" json:"amount"`
	Currency     string    `gorm:"column:currency;size:3" json:"currency"`
	Status       string    `gorm:"column:status;size:16" json:"status"`
	Metadata     JSONMap   `gorm:"column:metadata;type:text" json:"metadata,omitempty"`
	RecordedBy   int       `gorm:"column:recorded_by" json:"recordedBy"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"timestamp"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Manuscript) TableName() string         { return "manuscripts" }
func (ManuscriptAuthor) TableName() string   { return "manuscript_authors" }
func (ManuscriptRevision) TableName() string { return "manuscript_revisions" }
func (ManuscriptEditor) TableName() string   { return "manuscript_editors" }
func (PaymentRecord) TableName() string      { return "manuscript_payments" }

// SetStage moves the manuscript and keeps the coarse status in step.
func (m *Manuscript) SetStage(st Stage) {
	m.Stage = st
	m.Status = st.Status()
}

func (m *Manuscript) IsAuthor(userID int) bool {
	if m.SubmittedBy == userID {
		return true
	}
	for _, a := range m.Authors {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

func (m *Manuscript) HasEditor(userID int) bool {
	for _, e := range m.Editors {
		if e.EditorID == userID {
			return true
		}
	}
	return false
}

// AuthorIDs returns the author user ids in author order.
func (m *Manuscript) AuthorIDs() []int {
	ids := make([]int, 0, len(m.Authors))
	for _, a := range m.Authors {
		ids = append(ids, a.UserID)
	}
	return ids
}

func (m *Manuscript) FindPayment(paymentID string) *PaymentRecord {
	for i := range m.Payments {
		if m.Payments[i].PaymentID == paymentID {
			return &m.Payments[i]
		}
	}
	return nil
}
