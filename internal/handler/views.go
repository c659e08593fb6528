package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/mess-connect/internal/model"
	"github.com/iliyamo/mess-connect/internal/storage"
)

// userView is a user without the password hash.
type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
}

func viewUser(u *model.User) userView {
	return userView{
		ID:        u.ID,
		Email:     u.ID,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      u.Role,
		Status:    u.Status,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}

func viewUsers(us []*model.User) []userView {
	out := make([]userView, len(us))
	for i, u := range us {
		out[i] = viewUser(u)
	}
	return out
}

// feedbackView exposes the stored image reference as a loadable URL.
type feedbackView struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"studentId"`
	StudentName string     `json:"studentName"`
	Text        string     `json:"text"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	Reply       string     `json:"reply,omitempty"`
	RepliedAt   *time.Time `json:"repliedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// viewFeedback resolves image references. A reference that cannot be
// resolved is logged and left out instead of failing the whole list.
func viewFeedback(ctx context.Context, images storage.ImageStore, log *slog.Logger, items []*model.Feedback) []feedbackView {
	out := make([]feedbackView, len(items))
	for i, f := range items {
		v := feedbackView{
			ID:          f.ID,
			StudentID:   f.StudentID,
			StudentName: f.StudentName,
			Text:        f.Text,
			Reply:       f.Reply,
			RepliedAt:   f.RepliedAt,
			CreatedAt:   f.CreatedAt,
		}
		if f.Image != "" {
			url, err := images.Resolve(ctx, f.Image)
			if err != nil {
				log.WarnContext(ctx, "resolve image failed", "feedback_id", f.ID, "error", err)
			} else {
				v.ImageURL = url
			}
		}
		out[i] = v
	}
	return out
}
