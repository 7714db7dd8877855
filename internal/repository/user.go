package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/picvault/picvault/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")
)

const userColumns = `id, email, username, password_hash, profile_picture_url, created_at, updated_at`

// CreateUser inserts a new user into the database.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, email, username, password_hash, profile_picture_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.ProfilePictureURL,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return mapUserWriteError(err, "failed to create user")
	}

	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by their email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return user, nil
}

// ResolveUsernames maps usernames to user IDs. Unknown usernames are
// omitted; the result follows the order of the input.
func (r *Repository) ResolveUsernames(ctx context.Context, usernames []string) ([]string, error) {
	if len(usernames) == 0 {
		return []string{}, nil
	}

	query := `
		SELECT u.id
		FROM unnest($1::text[]) WITH ORDINALITY AS n(username, ord)
		JOIN users u ON u.username = n.username
		ORDER BY n.ord
	`

	rows, err := r.pool.Query(ctx, query, pq.Array(usernames))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve usernames: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, len(usernames))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return ids, nil
}

// UpdateProfile updates the username and profile picture of a user.
func (r *Repository) UpdateProfile(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET username = $2, profile_picture_url = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.ProfilePictureURL,
		user.UpdatedAt,
	)
	if err != nil {
		return mapUserWriteError(err, "failed to update profile")
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpdatePasswordHash replaces the stored password hash of a user.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, hash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.ProfilePictureURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return &user, err
}

// mapUserWriteError turns unique violations into the matching sentinel.
func mapUserWriteError(err error, msg string) error {
	if constraint, ok := uniqueViolation(err); ok {
		switch constraint {
		case "users_username_key":
			return ErrUsernameExists
		case "users_email_key":
			return ErrEmailExists
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
