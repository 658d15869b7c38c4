package models

import "time"

// ManuscriptStatusHistory tracks every stage change of a manuscript.
type ManuscriptStatusHistory struct {
	HistoryID    int       `gorm:"primaryKey;column:history_id" json:"id"`
	ManuscriptID int       `gorm:"column:manuscript_id;index" json:"manuscriptId"`
	OldStage     *Stage    `gorm:"column:old_stage;size:32" json:"oldStage,omitempty"`
	NewStage     Stage     `gorm:"column:new_stage;size:32" json:"newStage"`
	Round        int       `gorm:"column:round" json:"round"`
	Action       string    `gorm:"column:action;size:32" json:"action"`
	ChangedBy    int       `gorm:"column:changed_by" json:"changedBy"`
	Reason       *string   `gorm:"column:reason;type:text" json:"reason,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"createdAt"`
}

// TableName specifies the table for ManuscriptStatusHistory.
func (ManuscriptStatusHistory) TableName() string {
	return "manuscript_status_history"
}
