package domain

import "time"

type Notification struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	CallID string `json:"call_id" gorm:"size:36;index"`

	Process string `json:"process"`
	Content string `json:"content"`
}
