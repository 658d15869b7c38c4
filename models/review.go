package models

import "time"

// Assignment statuses.
const (
	AssignmentPending   = "pending"
	AssignmentAccepted  = "accepted"
	AssignmentDeclined  = "declined"
	AssignmentCompleted = "completed"
)

// Assignment links one reviewer to one manuscript for one round.
type Assignment struct {
	AssignmentID   int        `gorm:"primaryKey;column:assignment_id" json:"id"`
	ManuscriptID   int        `gorm:"column:manuscript_id;index:idx_assignment_round" json:"manuscriptId"`
	ReviewerID     int        `gorm:"column:reviewer_id;index" json:"reviewerId"`
	Round          int        `gorm:"column:round;index:idx_assignment_round" json:"round"`
	AssignedBy     int        `gorm:"column:assigned_by" json:"assignedBy"`
	PerformedBy    int        `gorm:"column:performed_by" json:"performedBy"`
	DueDate        time.Time  `gorm:"column:due_date" json:"dueDate"`
	Status         string     `gorm:"column:status;size:16;index" json:"status"`
	DeclineReason  *string    `gorm:"column:decline_reason;type:text" json:"declineReason,omitempty"`
	RespondedAt    *time.Time `gorm:"column:responded_at" json:"respondedAt,omitempty"`
	ReviewID       *int       `gorm:"column:review_id" json:"reviewId,omitempty"`
	LastReminderAt *time.Time `gorm:"column:last_reminder_at" json:"lastReminderAt,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updatedAt"`

	Manuscript *Manuscript `gorm:"foreignKey:ManuscriptID" json:"manuscript,omitempty"`
	Reviewer   *User       `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

// Open reports whether the assignment still holds a slot in its round.
func (a *Assignment) Open() bool {
	return a.Status == AssignmentPending || a.Status == AssignmentAccepted
}

func (a *Assignment) Overdue(now time.Time) bool {
	return a.Open() && now.After(a.DueDate)
}

// Review statuses.
const (
	ReviewAssigned   = "assigned"
	ReviewInProgress = "in_progress"
	ReviewSubmitted  = "submitted"
)

// Recommendations a reviewer can make.
const (
	RecommendAccept         = "accept"
	RecommendMinorRevisions = "minor_revisions"
	RecommendMajorRevisions = "major_revisions"
	RecommendReject         = "reject"
)

// ReviewScores holds the five 1-5 sub-scores.
type ReviewScores struct {
	Originality  int `gorm:"column:originality" json:"originality"`
	Methodology  int `gorm:"column:methodology" json:"methodology"`
	Contribution int `gorm:"column:contribution" json:"contribution"`
	Clarity      int `gorm:"column:clarity" json:"clarity"`
	References   int `gorm:"column:references" json:"references"`
}

func (s ReviewScores) Values() []int {
	return []int{s.Originality, s.Methodology, s.Contribution, s.Clarity, s.References}
}

// Review is unique per (manuscript, reviewer, round).
type Review struct {
	ReviewID             int          `gorm:"primaryKey;column:review_id" json:"id"`
	ManuscriptID         int          `gorm:"column:manuscript_id;uniqueIndex:idx_review_triple" json:"manuscriptId"`
	ReviewerID           int          `gorm:"column:reviewer_id;uniqueIndex:idx_review_triple" json:"reviewerId"`
	Round                int          `gorm:"column:round;uniqueIndex:idx_review_triple" json:"round"`
	AssignmentID         int          `gorm:"column:assignment_id;index" json:"assignmentId"`
	Scores               ReviewScores `gorm:"embedded;embeddedPrefix:score_" json:"scores"`
	OverallScore         float64      `gorm:"column:overall_score" json:"overallScore"`
	Recommendation       string       `gorm:"column:recommendation;size:32" json:"recommendation"`
	CommentsToAuthor     string       `gorm:"column:comments_to_author;type:text" json:"commentsToAuthor"`
	CommentsToEditor     string       `gorm:"column:comments_to_editor;type:text" json:"commentsToEditor,omitempty"`
	ConfidentialComments string       `gorm:"column:confidential_comments;type:text" json:"confidentialComments,omitempty"`
	Status               string       `gorm:"column:status;size:16" json:"status"`
	DueDate              time.Time    `gorm:"column:due_date" json:"dueDate"`
	SubmittedAt          *time.Time   `gorm:"column:submitted_at" json:"submittedAt,omitempty"`
	CreatedAt            time.Time    `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt            time.Time    `gorm:"column:updated_at" json:"updatedAt"`

	Reviewer *User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

func (Assignment) TableName() string { return "review_assignments" }
func (Review) TableName() string     { return "reviews" }

// ForAuthor strips everything an author must not see.
func (r Review) ForAuthor() Review {
	r.ReviewerID = 0
	r.Reviewer = nil
	r.CommentsToEditor = ""
	r.ConfidentialComments = ""
	return r
}
