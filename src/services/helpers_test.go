package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/theleywin/lostnfound-backend/src/apperr"
	"github.com/theleywin/lostnfound-backend/src/auth"
	"github.com/theleywin/lostnfound-backend/src/models"
	"github.com/theleywin/lostnfound-backend/src/notify"
	"github.com/theleywin/lostnfound-backend/src/storage"
	"github.com/theleywin/lostnfound-backend/src/store"
)

type fakeImages struct {
	mu      sync.Mutex
	saved   map[string][]byte
	deleted []string
	seq     int
}

func newFakeImages() *fakeImages {
	return &fakeImages{saved: map[string][]byte{}}
}

func (f *fakeImages) Save(_ context.Context, upload storage.Upload) (string, error) {
	body, err := io.ReadAll(upload.Body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	ref := fmt.Sprintf("/uploads/%d.png", f.seq)
	f.saved[ref] = body
	return ref, nil
}

func (f *fakeImages) Delete(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.saved, ref)
	f.deleted = append(f.deleted, ref)
	return nil
}

type testEnv struct {
	repos  store.Repositories
	images *fakeImages
	items  *ItemService
	users  *UserService
	notes  *NotificationService
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, store.NewMemory().Repositories())
}

func newTestEnvWith(t *testing.T, repos store.Repositories) *testEnv {
	t.Helper()
	images := newFakeImages()
	tokens := auth.NewJWTIssuer("test-secret", time.Hour, "lostnfound-test")
	return &testEnv{
		repos:  repos,
		images: images,
		items: NewItemService(ItemServiceDeps{
			Repos:    repos,
			Images:   images,
			Notifier: notify.Inline{Logger: quietLogger()},
			Logger:   quietLogger(),
		}),
		users: NewUserService(repos.Users, auth.NewBcryptHasher(4), tokens),
		notes: NewNotificationService(repos.Notifications),
	}
}

// register creates a user and returns its id.
func (e *testEnv) register(t *testing.T, email string) string {
	t.Helper()
	user, err := e.users.Register(context.Background(), Registration{
		NUID:     "001",
		Name:     "User " + email,
		Phone:    "555-0100",
		Email:    email,
		Password: "secret123",
	})
	require.NoError(t, err)
	return user.Id.Hex()
}

func (e *testEnv) createItem(t *testing.T, ownerID string) *models.Item {
	t.Helper()
	item, err := e.items.Create(context.Background(), ownerID, NewItem{
		Name:        "Blue Wallet",
		Location:    "Library",
		Description: "Leather wallet near the entrance",
		DateFound:   "2024-05-01",
		Category:    "Accessories",
	}, nil)
	require.NoError(t, err)
	return item
}

func (e *testEnv) notificationsFor(t *testing.T, userID string) []models.Notification {
	t.Helper()
	page, err := e.notes.List(context.Background(), userID, models.Page{Number: 1, Limit: models.MaxPerPage})
	require.NoError(t, err)
	return page.Notifications
}

func requireKind(t *testing.T, err error, kind apperr.Kind) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr), "expected *apperr.Error, got %T: %v", err, err)
	require.Equal(t, kind, appErr.Kind, appErr.Message)
	return appErr
}

func ptr[T any](v T) *T { return &v }
