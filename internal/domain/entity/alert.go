package entity

import "time"

// AlertNotification is an in-app alert row produced by workflow events
type AlertNotification struct {
	ID          int64     `json:"id"`
	ReportID    int64     `json:"report_id"`
	RecipientID string    `json:"recipient_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Priority    string    `json:"priority"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}
