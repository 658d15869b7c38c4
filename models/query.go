package models

import "time"

// Query statuses.
const (
	QueryPending  = "pending"
	QueryAnswered = "answered"
)

// Query is a help-desk ticket addressed to the editor-in-chief. It has no
// relation to manuscripts.
type Query struct {
	QueryID   int        `gorm:"primaryKey;column:query_id" json:"id"`
	UserID    *int       `gorm:"column:user_id;index" json:"userId,omitempty"`
	Name      string     `gorm:"column:name;size:255" json:"name"`
	Email     string     `gorm:"column:email;size:255;index" json:"email"`
	Subject   string     `gorm:"column:subject;size:255" json:"subject"`
	Message   string     `gorm:"column:message;type:text" json:"message"`
	Reply     *string    `gorm:"column:reply;type:text" json:"reply,omitempty"`
	RepliedBy *int       `gorm:"column:replied_by" json:"repliedBy,omitempty"`
	RepliedAt *time.Time `gorm:"column:replied_at" json:"repliedAt,omitempty"`
	Status    string     `gorm:"column:status;size:16;index" json:"status"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

func (Query) TableName() string { return "queries" }
