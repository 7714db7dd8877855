package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/picvault/picvault/internal/model"
)

// Common errors for image repository operations.
var (
	ErrImageNotFound  = errors.New("image not found")
	ErrPublicIDExists = errors.New("public id already exists")
)

const imageSelect = `
	SELECT i.id, i.filename, i.url, i.format, i.public_id, i.owner_id,
	       i.title, i.description, i.message, i.location, i.date_special, i.tags,
	       ARRAY(SELECT t.user_id FROM image_tagged_users t WHERE t.image_id = i.id ORDER BY t.position),
	       i.created_at
	FROM images i
`

// visibleTo restricts a query to images owned by or tagging the user bound to $1.
const visibleTo = `(i.owner_id = $1 OR EXISTS (
	SELECT 1 FROM image_tagged_users t WHERE t.image_id = i.id AND t.user_id = $1
))`

// CreateImage inserts an image and its tagged users in one transaction.
func (r *Repository) CreateImage(ctx context.Context, img *model.Image) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO images (id, owner_id, filename, url, format, public_id, title, description, message, location, date_special, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = tx.Exec(ctx, query,
		img.ID,
		img.OwnerID,
		img.Filename,
		img.URL,
		img.Format,
		img.PublicID,
		img.Title,
		img.Description,
		img.Message,
		img.Location,
		img.DateSpecial,
		pq.Array(img.Tags),
		img.CreatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == "images_public_id_key" {
			return ErrPublicIDExists
		}
		return fmt.Errorf("failed to create image: %w", err)
	}

	if len(img.TaggedUsers) > 0 {
		tagQuery := `
			INSERT INTO image_tagged_users (image_id, user_id, position)
			SELECT $1, u.user_id, u.ord
			FROM unnest($2::text[]) WITH ORDINALITY AS u(user_id, ord)
			ON CONFLICT DO NOTHING
		`
		if _, err := tx.Exec(ctx, tagQuery, img.ID, pq.Array(img.TaggedUsers)); err != nil {
			return fmt.Errorf("failed to tag users: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit image: %w", err)
	}

	return nil
}

// GetImageByID retrieves an image by its ID.
func (r *Repository) GetImageByID(ctx context.Context, id string) (*model.Image, error) {
	query := imageSelect + ` WHERE i.id = $1`

	img, err := scanImage(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to get image by ID: %w", err)
	}

	return img, nil
}

// ListImagesForUser returns images owned by or tagging the user, newest first.
func (r *Repository) ListImagesForUser(ctx context.Context, userID string) ([]*model.Image, error) {
	query := imageSelect + ` WHERE ` + visibleTo + ` ORDER BY i.created_at DESC, i.id DESC`
	return r.queryImages(ctx, query, userID)
}

// SearchImages matches text case-insensitively against title, description,
// location and tags. When visibleToUserID is non-empty only images visible
// to that user are considered.
func (r *Repository) SearchImages(ctx context.Context, text, visibleToUserID string) ([]*model.Image, error) {
	match := `(
		i.title ILIKE $2 ESCAPE '\' OR
		i.description ILIKE $2 ESCAPE '\' OR
		i.location ILIKE $2 ESCAPE '\' OR
		EXISTS (SELECT 1 FROM unnest(i.tags) AS tag WHERE tag ILIKE $2 ESCAPE '\')
	)`
	pattern := "%" + escapeLike(text) + "%"

	query := imageSelect + ` WHERE ($1 = '' OR ` + visibleTo + `) AND ` + match +
		` ORDER BY i.created_at DESC, i.id DESC`

	return r.queryImages(ctx, query, visibleToUserID, pattern)
}

// ListTimeline returns images across all users, newest first. A limit of
// zero or less returns all of them.
func (r *Repository) ListTimeline(ctx context.Context, limit int) ([]*model.Image, error) {
	query := imageSelect + ` ORDER BY i.created_at DESC, i.id DESC`
	if limit <= 0 {
		return r.queryImages(ctx, query)
	}
	return r.queryImages(ctx, query+` LIMIT $1`, limit)
}

// DeleteImage removes an image record and its tags.
func (r *Repository) DeleteImage(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrImageNotFound
	}

	return nil
}

func (r *Repository) queryImages(ctx context.Context, query string, args ...any) ([]*model.Image, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	images := make([]*model.Image, 0)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating images: %w", err)
	}

	return images, nil
}

func scanImage(row pgx.Row) (*model.Image, error) {
	var img model.Image
	var tags, tagged []string
	err := row.Scan(
		&img.ID,
		&img.Filename,
		&img.URL,
		&img.Format,
		&img.PublicID,
		&img.OwnerID,
		&img.Title,
		&img.Description,
		&img.Message,
		&img.Location,
		&img.DateSpecial,
		&tags,
		&tagged,
		&img.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	img.Tags = nonNil(tags)
	img.TaggedUsers = nonNil(tagged)
	return &img, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
