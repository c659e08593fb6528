package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mess-connect/internal/middleware"
	"github.com/iliyamo/mess-connect/internal/model"
	"github.com/iliyamo/mess-connect/internal/repository"
	"github.com/iliyamo/mess-connect/internal/storage"
)

// minFeedbackText is the shortest complaint or suggestion accepted.
const minFeedbackText = 10

// FeedbackHandler serves one feedback kind. Complaints and suggestions
// share it with a different repository, label and list key.
type FeedbackHandler struct {
	Items   *repository.FeedbackRepo
	Images  storage.ImageStore
	Log     *slog.Logger
	Label   string // "Complaint"
	ListKey string // "complaints"
	now     func() time.Time
}

func NewFeedbackHandler(items *repository.FeedbackRepo, images storage.ImageStore, log *slog.Logger, label, listKey string) *FeedbackHandler {
	if items == nil || images == nil || log == nil {
		panic("nil dependency passed to NewFeedbackHandler")
	}
	return &FeedbackHandler{Items: items, Images: images, Log: log, Label: label, ListKey: listKey, now: time.Now}
}

type feedbackReq struct {
	Text     string `json:"text" form:"text"`
	Image    string `json:"image" validate:"omitempty,startswith=data:" msg:"Image must be a base64 data URL"`
	ImageURL string `json:"imageUrl" validate:"omitempty,http_url" msg:"Image URL must be a valid http(s) URL"`
}

type replyReq struct {
	Reply string `json:"reply" validate:"required,max=2000" msg:"Reply is required and must be at most 2000 characters"`
}

// Create stores a student's complaint or suggestion. The optional image
// comes as a multipart file named "image", as a data URL in the JSON
// field "image", or as an external link in "imageUrl".
func (h *FeedbackHandler) Create(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	var (
		req  feedbackReq
		data []byte
	)
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		req.Text = c.FormValue("text")
		file, err := c.FormFile("image")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			return fail(c, http.StatusBadRequest, "invalid image upload")
		case file.Size > storage.MaxImageBytes:
			return fail(c, http.StatusBadRequest, storage.ErrTooLarge.Error())
		default:
			if data, err = readUpload(file); err != nil {
				return fail(c, http.StatusBadRequest, err.Error())
			}
		}
	} else {
		if msg := bind(c, &req); msg != "" {
			return fail(c, http.StatusBadRequest, msg)
		}
		if req.Image != "" {
			var err error
			if data, err = storage.DecodeDataURL(req.Image); err != nil {
				return fail(c, http.StatusBadRequest, err.Error())
			}
		}
	}
	text := strings.TrimSpace(req.Text)
	if utf8.RuneCountInString(text) < minFeedbackText {
		return fail(c, http.StatusBadRequest, fmt.Sprintf("%s must be at least %d characters long.", h.Label, minFeedbackText))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	f := &model.Feedback{
		StudentID:   u.ID,
		StudentName: u.Name,
		Text:        text,
		Image:       req.ImageURL,
		CreatedAt:   h.now().UTC(),
	}
	if data != nil {
		ref, err := h.Images.Save(ctx, data)
		if errors.Is(err, storage.ErrTooLarge) || errors.Is(err, storage.ErrNotAnImage) {
			return fail(c, http.StatusBadRequest, err.Error())
		}
		if err != nil {
			return internalError(c, h.Log, "save image", err)
		}
		f.Image = ref
	}
	if err := h.Items.Create(ctx, f); err != nil {
		if f.Image != req.ImageURL {
			_ = h.Images.Delete(ctx, f.Image)
		}
		return internalError(c, h.Log, "create "+strings.ToLower(h.Label), err)
	}
	return ok(c, http.StatusCreated, viewFeedback(ctx, h.Images, h.Log, []*model.Feedback{f})[0])
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, storage.ErrNotAnImage
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, storage.MaxImageBytes+1))
	if err != nil {
		return nil, storage.ErrNotAnImage
	}
	if len(data) > storage.MaxImageBytes {
		return nil, storage.ErrTooLarge
	}
	return data, nil
}

// Mine lists everything the calling student submitted.
func (h *FeedbackHandler) Mine(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Items.ListByStudent(ctx, u.ID)
	if err != nil {
		return internalError(c, h.Log, "list own "+h.ListKey, err)
	}
	return ok(c, http.StatusOK, echo.Map{h.ListKey: viewFeedback(ctx, h.Images, h.Log, items)})
}

// All pages through every submission in creation order.
func (h *FeedbackHandler) All(c echo.Context) error {
	cursor, limit, msg := page(c)
	if msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, next, err := h.Items.List(ctx, cursor, limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return fail(c, http.StatusBadRequest, "invalid cursor")
		}
		return internalError(c, h.Log, "list "+h.ListKey, err)
	}
	return listed(c, h.ListKey, viewFeedback(ctx, h.Images, h.Log, items), next)
}

// Reply stores the manager's answer on one submission.
func (h *FeedbackHandler) Reply(c echo.Context) error {
	var req replyReq
	if msg := bind(c, &req); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	reply := strings.TrimSpace(req.Reply)
	if reply == "" {
		return fail(c, http.StatusBadRequest, "Reply is required and must be at most 2000 characters")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	f, err := h.Items.Reply(ctx, c.Param("id"), reply, h.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, h.Label+" not found")
		}
		return internalError(c, h.Log, "reply "+strings.ToLower(h.Label), err)
	}
	return ok(c, http.StatusOK, viewFeedback(ctx, h.Images, h.Log, []*model.Feedback{f})[0])
}
