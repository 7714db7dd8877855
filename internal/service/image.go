package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/picvault/picvault/internal/config"
	"github.com/picvault/picvault/internal/metrics"
	"github.com/picvault/picvault/internal/model"
	"github.com/picvault/picvault/internal/repository"
	"github.com/picvault/picvault/internal/storage"
)

// ImageStore persists image metadata.
type ImageStore interface {
	CreateImage(ctx context.Context, img *model.Image) error
	GetImageByID(ctx context.Context, id string) (*model.Image, error)
	ListImagesForUser(ctx context.Context, userID string) ([]*model.Image, error)
	SearchImages(ctx context.Context, text, visibleToUserID string) ([]*model.Image, error)
	ListTimeline(ctx context.Context, limit int) ([]*model.Image, error)
	DeleteImage(ctx context.Context, id string) error
	ResolveUsernames(ctx context.Context, usernames []string) ([]string, error)
}

// MediaStore holds image bytes.
type MediaStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
}

// Defaults applied by NewImageService.
const (
	DefaultMaxUploadBytes = 5 << 20
)

// allowedFormats maps sniffed MIME types to stored format names.
var allowedFormats = map[string]string{
	"image/jpeg": model.FormatJPEG,
	"image/png":  model.FormatPNG,
	"image/webp": model.FormatWebP,
}

// ImageConfig holds image catalog settings.
type ImageConfig struct {
	MaxBytes      int64
	SearchScope   string // config.SearchScopeVisible or config.SearchScopeGlobal
	TimelineLimit int // 0 returns every image
}

// ImageService handles image upload, listing, search and deletion.
type ImageService struct {
	images  ImageStore
	media   MediaStore
	cfg     ImageConfig
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewImageService creates a new ImageService.
func NewImageService(images ImageStore, media MediaStore, cfg ImageConfig, recorder metrics.Recorder, logger *slog.Logger) *ImageService {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxUploadBytes
	}
	if cfg.TimelineLimit < 0 {
		cfg.TimelineLimit = 0
	}
	if cfg.SearchScope == "" {
		cfg.SearchScope = config.SearchScopeVisible
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageService{
		images:  images,
		media:   media,
		cfg:     cfg,
		metrics: recorder,
		logger:  logger,
		now:     time.Now,
	}
}

// MaxBytes returns the upload size cap.
func (s *ImageService) MaxBytes() int64 {
	return s.cfg.MaxBytes
}

// UploadInput defines input for an image upload.
type UploadInput struct {
	OwnerID         string
	Filename        string
	File            io.Reader
	Title           string
	Description     string
	Message         string
	Location        string
	DateSpecial     *time.Time
	Tags            []string
	TaggedUsernames []string
}

// Upload stores the file in the media store and records its metadata.
func (s *ImageService) Upload(ctx context.Context, input UploadInput) (*model.Image, error) {
	start := s.now()

	if input.File == nil {
		return nil, ErrNoFile
	}

	data, err := io.ReadAll(io.LimitReader(input.File, s.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxBytes {
		s.metrics.IncUploadRejected("size")
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, ErrNoFile
	}

	mime := mimetype.Detect(data)
	format, ok := allowedFormats[mime.String()]
	if !ok {
		s.metrics.IncUploadRejected("type")
		return nil, ErrUnsupportedType
	}

	tagged := model.NormalizeList(input.TaggedUsernames)
	taggedIDs, err := s.images.ResolveUsernames(ctx, tagged)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tagged users: %w", err)
	}

	key := storage.ObjectKey(input.OwnerID, format, start)
	url, err := s.media.Put(ctx, key, mime.String(), bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	filename := strings.TrimSpace(input.Filename)
	if filename == "" {
		filename = "upload" + mime.Extension()
	}

	img := &model.Image{
		ID:          model.NewID(),
		Filename:    filename,
		URL:         url,
		Format:      format,
		PublicID:    key,
		OwnerID:     input.OwnerID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Message:     strings.TrimSpace(input.Message),
		Location:    strings.TrimSpace(input.Location),
		DateSpecial: input.DateSpecial,
		Tags:        model.NormalizeList(input.Tags),
		TaggedUsers: nonNilIDs(taggedIDs),
		CreatedAt:   start.UTC().Truncate(time.Microsecond),
	}

	if err := s.images.CreateImage(ctx, img); err != nil {
		if delErr := s.media.Delete(ctx, key); delErr != nil {
			s.logger.ErrorContext(ctx, "orphaned media object", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to create image: %w", err)
	}

	s.metrics.IncImageUploaded()
	s.metrics.ObserveUploadBytes(int64(len(data)))
	s.metrics.ObserveUploadDuration(s.now().Sub(start))

	return img, nil
}

// ListForUser returns images owned by or tagging userID, newest first.
func (s *ImageService) ListForUser(ctx context.Context, userID string) ([]*model.Image, error) {
	images, err := s.images.ListImagesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}

// GetByID returns a single image.
func (s *ImageService) GetByID(ctx context.Context, id string) (*model.Image, error) {
	if !model.IsValidID(id) {
		return nil, ErrImageNotFound
	}

	img, err := s.images.GetImageByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return img, nil
}

// Search matches query against title, description, location and tags.
func (s *ImageService) Search(ctx context.Context, callerID, query string) ([]*model.Image, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	visibleTo := callerID
	if s.cfg.SearchScope == config.SearchScopeGlobal {
		visibleTo = ""
	}

	images, err := s.images.SearchImages(ctx, query, visibleTo)
	if err != nil {
		return nil, fmt.Errorf("failed to search images: %w", err)
	}
	return images, nil
}

// Timeline returns the images of all users, newest first. A positive
// TimelineLimit truncates the result.
func (s *ImageService) Timeline(ctx context.Context) ([]*model.Image, error) {
	images, err := s.images.ListTimeline(ctx, s.cfg.TimelineLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list timeline: %w", err)
	}
	return images, nil
}

// Delete removes an image owned by callerID. The media object goes first;
// if that fails the record stays.
func (s *ImageService) Delete(ctx context.Context, imageID, callerID string) error {
	img, err := s.GetByID(ctx, imageID)
	if err != nil {
		return err
	}

	if !img.IsOwnedBy(callerID) {
		return ErrForbidden
	}
	if img.PublicID == "" {
		return ErrMissingPublicID
	}

	if err := s.media.Delete(ctx, img.PublicID); err != nil {
		return fmt.Errorf("failed to delete media object: %w", err)
	}

	if err := s.images.DeleteImage(ctx, img.ID); err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			return ErrImageNotFound
		}
		return fmt.Errorf("failed to delete image: %w", err)
	}

	s.metrics.IncImageDeleted()
	s.logger.InfoContext(ctx, "image deleted", "image_id", img.ID, "user_id", callerID)
	return nil
}

func nonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
