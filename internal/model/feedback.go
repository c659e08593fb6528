package model

import "time"

// Feedback is the shared shape of complaints and suggestions. Both are
// written by a student and may carry a single manager reply.
type Feedback struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"studentId"`
	StudentName string     `json:"studentName"`
	Text        string     `json:"text"`
	Image       string     `json:"image,omitempty"` // storage reference, see internal/storage
	Reply       string     `json:"reply,omitempty"`
	RepliedAt   *time.Time `json:"repliedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
