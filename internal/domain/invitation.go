package domain

import "time"

// ReviewInvitation schedules a review reminder for a completed order. Rows
// are created by the order-completed consumer and picked up by the reminder
// worker once RemindAt has passed; SentAt marks the reminder as dispatched.
type ReviewInvitation struct {
	ID        int64      `json:"id"`
	ProductID string     `json:"product_id"`
	OrderID   string     `json:"order_id"`
	Email     string     `json:"email"`
	RemindAt  time.Time  `json:"remind_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Due reports whether the invitation should be dispatched at the given time.
func (i *ReviewInvitation) Due(now time.Time) bool {
	return i.SentAt == nil && !i.RemindAt.After(now)
}
