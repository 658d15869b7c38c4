package models

import "time"

type Notification struct {
	NotificationID      int        `gorm:"primaryKey;column:notification_id" json:"id"`
	UserID              int        `gorm:"column:user_id;index" json:"userId"`
	Title               string     `gorm:"column:title;size:255" json:"title"`
	Message             string     `gorm:"column:message;type:text" json:"message"`
	Type                string     `gorm:"column:type;size:16" json:"type"` // info|success|warning|error
	EventKey            string     `gorm:"column:event_key;size:64" json:"eventKey"`
	RelatedManuscriptID *int       `gorm:"column:related_manuscript_id" json:"relatedManuscriptId,omitempty"`
	IsRead              bool       `gorm:"column:is_read" json:"isRead"`
	CreatedAt           time.Time  `gorm:"column:created_at" json:"createdAt"`
	ReadAt              *time.Time `gorm:"column:read_at" json:"readAt,omitempty"`
}

func (Notification) TableName() string { return "notifications" }
