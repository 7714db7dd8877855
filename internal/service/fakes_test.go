package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/picvault/picvault/internal/model"
	"github.com/picvault/picvault/internal/repository"
)

// fakeUsers is an in-memory UserStore with the same uniqueness rules as the
// users table.
type fakeUsers struct {
	mu        sync.Mutex
	byID      map[string]*model.User
	createErr error
	hashSets  int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[string]*model.User)}
}

func (f *fakeUsers) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.byID {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
		if u.Username == user.Username {
			return repository.ErrUsernameExists
		}
	}
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Email == email })
}

func (f *fakeUsers) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Username == username })
}

func (f *fakeUsers) find(match func(*model.User) bool) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUsers) UpdateProfile(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	for id, u := range f.byID {
		if id != user.ID && u.Username == user.Username {
			return repository.ErrUsernameExists
		}
	}
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) UpdatePasswordHash(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	f.hashSets++
	return nil
}

// fakeImages is an in-memory ImageStore backed by a fakeUsers for username
// resolution.
type fakeImages struct {
	mu        sync.Mutex
	users     *fakeUsers
	images    map[string]*model.Image
	createErr error
	deleteErr error
	deletes   int
}

func newFakeImages(users *fakeUsers) *fakeImages {
	return &fakeImages{users: users, images: make(map[string]*model.Image)}
}

func (f *fakeImages) CreateImage(_ context.Context, img *model.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cp := *img
	f.images[img.ID] = &cp
	return nil
}

func (f *fakeImages) GetImageByID(_ context.Context, id string) (*model.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[id]
	if !ok {
		return nil, repository.ErrImageNotFound
	}
	cp := *img
	return &cp, nil
}

func (f *fakeImages) ListImagesForUser(_ context.Context, userID string) ([]*model.Image, error) {
	return f.filter(func(img *model.Image) bool { return img.IsVisibleTo(userID) }, 0), nil
}

func (f *fakeImages) SearchImages(_ context.Context, text, visibleToUserID string) ([]*model.Image, error) {
	needle := strings.ToLower(text)
	return f.filter(func(img *model.Image) bool {
		if visibleToUserID != "" && !img.IsVisibleTo(visibleToUserID) {
			return false
		}
		fields := append([]string{img.Title, img.Description, img.Location}, img.Tags...)
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field), needle) {
				return true
			}
		}
		return false
	}, 0), nil
}

func (f *fakeImages) ListTimeline(_ context.Context, limit int) ([]*model.Image, error) {
	return f.filter(func(*model.Image) bool { return true }, limit), nil
}

func (f *fakeImages) DeleteImage(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.images[id]; !ok {
		return repository.ErrImageNotFound
	}
	delete(f.images, id)
	f.deletes++
	return nil
}

func (f *fakeImages) ResolveUsernames(ctx context.Context, usernames []string) ([]string, error) {
	ids := make([]string, 0, len(usernames))
	for _, name := range usernames {
		u, err := f.users.GetUserByUsername(ctx, name)
		if errors.Is(err, repository.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func (f *fakeImages) filter(keep func(*model.Image) bool, limit int) []*model.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Image, 0)
	for _, img := range f.images {
		if keep(img) {
			cp := *img
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// fakeMedia records objects put into and deleted from the media store.
type fakeMedia struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	putErr    error
	deleteErr error
	puts      int
	deletes   int
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeMedia) Put(_ context.Context, key, contentType string, body io.Reader, _ int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return "", f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.objects[key] = data
	f.types[key] = contentType
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeMedia) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeMedia) calls() (puts, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts, f.deletes
}
