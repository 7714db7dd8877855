package model

import (
	"strings"
	"time"
)

// Supported image formats.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// Image represents an uploaded image and its metadata.
type Image struct {
	ID          string
	Filename    string
	URL         string
	Format      string
	PublicID    string // Storage object key
	OwnerID     string
	Title       string
	Description string
	Message     string
	Location    string
	DateSpecial *time.Time
	Tags        []string
	TaggedUsers []string // User IDs
	CreatedAt   time.Time
}

// IsOwnedBy reports whether userID owns the image.
func (i *Image) IsOwnedBy(userID string) bool {
	return userID != "" && i.OwnerID == userID
}

// IsVisibleTo reports whether the image is owned by or tags userID.
func (i *Image) IsVisibleTo(userID string) bool {
	if i.IsOwnedBy(userID) {
		return true
	}
	for _, id := range i.TaggedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// NormalizeList flattens repeated and comma-joined values into a list of
// trimmed, non-empty strings. Duplicates are dropped, keeping the first
// occurrence. The result is never nil.
func NormalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, dup := seen[part]; dup {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}
