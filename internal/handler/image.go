package handler

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/picvault/picvault/internal/handler/dto"
	"github.com/picvault/picvault/internal/model"
	"github.com/picvault/picvault/internal/service"
)

// multipartOverhead is allowed on top of the file size cap for the text
// fields and part headers of an upload.
const multipartOverhead = 1 << 20

// ImageService is the subset of service.ImageService used by ImageHandler.
type ImageService interface {
	Upload(ctx context.Context, input service.UploadInput) (*model.Image, error)
	ListForUser(ctx context.Context, userID string) ([]*model.Image, error)
	GetByID(ctx context.Context, id string) (*model.Image, error)
	Search(ctx context.Context, callerID, query string) ([]*model.Image, error)
	Timeline(ctx context.Context) ([]*model.Image, error)
	Delete(ctx context.Context, imageID, callerID string) error
	MaxBytes() int64
}

// ImageHandler handles image endpoints.
type ImageHandler struct {
	svc    ImageService
	logger *slog.Logger
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(svc ImageService, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{
		svc:    svc,
		logger: logger,
	}
}

// Upload handles POST /api/images/upload.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	limit := h.svc.MaxBytes() + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handleServiceError(w, r, h.logger, service.ErrFileTooLarge)
			return
		}
		writeMessage(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			handleServiceError(w, r, h.logger, service.ErrNoFile)
			return
		}
		writeMessage(w, http.StatusBadRequest, "invalid file field")
		return
	}
	defer file.Close()

	dateSpecial, err := parseDateSpecial(r.FormValue("dateSpecial"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "dateSpecial must be RFC 3339 or YYYY-MM-DD")
		return
	}

	img, err := h.svc.Upload(r.Context(), service.UploadInput{
		OwnerID:         userID,
		Filename:        header.Filename,
		File:            file,
		Title:           r.FormValue("title"),
		Description:     r.FormValue("description"),
		Message:         r.FormValue("message"),
		Location:        r.FormValue("location"),
		DateSpecial:     dateSpecial,
		Tags:            formValues(r.MultipartForm, "tags"),
		TaggedUsernames: formValues(r.MultipartForm, "taggedUsernames"),
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "image_uploaded",
		"image_id", img.ID,
		"user_id", userID,
		"format", img.Format,
		"tagged_users", len(img.TaggedUsers),
	)

	writeJSON(w, http.StatusCreated, dto.UploadResponse{
		Message: "image uploaded",
		Image:   dto.ToImageResponse(img),
	})
}

// List handles GET /api/images.
func (h *ImageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	images, err := h.svc.ListForUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToImageList(images))
}

// Search handles GET /api/images/search?q=.
func (h *ImageHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	images, err := h.svc.Search(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToImageList(images))
}

// Timeline handles GET /api/images/timeline.
func (h *ImageHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	images, err := h.svc.Timeline(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToImageList(images))
}

// Get handles GET /api/images/{id}.
func (h *ImageHandler) Get(w http.ResponseWriter, r *http.Request) {
	img, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToImageResponse(img))
}

// Delete handles DELETE /api/images/{id}/delete.
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, service.ErrForbidden) {
			h.logger.WarnContext(r.Context(), "image_delete_forbidden", "image_id", id, "user_id", userID)
		}
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeMessage(w, http.StatusOK, "image deleted")
}

// parseDateSpecial accepts RFC 3339 timestamps and plain dates.
// An empty value means no date.
func parseDateSpecial(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errors.New("unrecognized date")
}

// formValues returns every value submitted for key. Comma splitting and
// trimming happen in the service.
func formValues(form *multipart.Form, key string) []string {
	if form == nil {
		return []string{}
	}
	values := form.Value[key]
	if values == nil {
		return []string{}
	}
	return values
}
