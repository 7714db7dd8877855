package dto

import (
	"time"

	"github.com/picvault/picvault/internal/model"
)

// ImageMetadata groups the optional descriptive fields of an image.
type ImageMetadata struct {
	DateSpecial *time.Time `json:"dateSpecial,omitempty"`
	Location    string     `json:"location"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
}

// ImageResponse represents an image in API responses.
type ImageResponse struct {
	ID          string        `json:"id"`
	Filename    string        `json:"filename"`
	URL         string        `json:"url"`
	Format      string        `json:"format"`
	PublicID    string        `json:"public_id"`
	UserID      string        `json:"userId"`
	Message     string        `json:"message"`
	TaggedUsers []string      `json:"taggedUsers"`
	Metadata    ImageMetadata `json:"metadata"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// UploadResponse is returned by a successful upload.
type UploadResponse struct {
	Message string        `json:"message"`
	Image   ImageResponse `json:"image"`
}

// ToImageResponse converts a model.Image to its API form.
func ToImageResponse(img *model.Image) ImageResponse {
	return ImageResponse{
		ID:          img.ID,
		Filename:    img.Filename,
		URL:         img.URL,
		Format:      img.Format,
		PublicID:    img.PublicID,
		UserID:      img.OwnerID,
		Message:     img.Message,
		TaggedUsers: nonNil(img.TaggedUsers),
		Metadata: ImageMetadata{
			DateSpecial: img.DateSpecial,
			Location:    img.Location,
			Title:       img.Title,
			Description: img.Description,
			Tags:        nonNil(img.Tags),
		},
		CreatedAt: img.CreatedAt,
	}
}

// ToImageList converts images, returning an empty array rather than null.
func ToImageList(images []*model.Image) []ImageResponse {
	out := make([]ImageResponse, 0, len(images))
	for _, img := range images {
		out = append(out, ToImageResponse(img))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
