package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theleywin/lostnfound-backend/src/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seedItem(t *testing.T, repo ItemRepository, item models.Item) models.Item {
	t.Helper()
	if item.Status == "" {
		item.Status = models.ItemStatusSearching
	}
	require.NoError(t, repo.Insert(context.Background(), &item))
	return item
}

func TestMemoryUsers_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	users := NewMemory().Repositories().Users

	u := models.User{Name: "Ada", Email: "ada@example.edu", PasswordHash: "h"}
	require.NoError(t, users.Insert(ctx, &u))
	assert.False(t, u.Id.IsZero())

	got, err := users.FindByEmail(ctx, "ada@example.edu")
	require.NoError(t, err)
	assert.Equal(t, u.Id, got.Id)

	got, err = users.FindByID(ctx, u.Id.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	_, err = users.FindByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = users.FindByID(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUsers_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	users := NewMemory().Repositories().Users

	a := models.User{Email: "a@example.edu"}
	b := models.User{Email: "b@example.edu"}
	require.NoError(t, users.Insert(ctx, &a))
	require.NoError(t, users.Insert(ctx, &b))

	dup := models.User{Email: "a@example.edu"}
	assert.ErrorIs(t, users.Insert(ctx, &dup), ErrDuplicate)

	taken := "a@example.edu"
	err := users.Update(ctx, b.Id.Hex(), models.UserUpdate{Email: &taken, UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryUsers_UpdateAndPassword(t *testing.T) {
	ctx := context.Background()
	users := NewMemory().Repositories().Users

	u := models.User{Name: "Old", Email: "u@example.edu", PasswordHash: "old"}
	require.NoError(t, users.Insert(ctx, &u))

	name := "New"
	require.NoError(t, users.Update(ctx, u.Id.Hex(), models.UserUpdate{Name: &name, UpdatedAt: time.Now()}))
	require.NoError(t, users.SetPasswordHash(ctx, u.Id.Hex(), "new"))

	got, err := users.FindByID(ctx, u.Id.Hex())
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, "u@example.edu", got.Email)
	assert.Equal(t, "new", got.PasswordHash)
	assert.NotNil(t, got.UpdatedAt)

	assert.ErrorIs(t, users.SetPasswordHash(ctx, primitive.NewObjectID().Hex(), "x"), ErrNotFound)
}

func TestMemoryUsers_ListIDsExcept(t *testing.T) {
	ctx := context.Background()
	users := NewMemory().Repositories().Users

	var ids []string
	for _, email := range []string{"a@x.edu", "b@x.edu", "c@x.edu"} {
		u := models.User{Email: email}
		require.NoError(t, users.Insert(ctx, &u))
		ids = append(ids, u.Id.Hex())
	}

	others, err := users.ListIDsExcept(ctx, ids[0])
	require.NoError(t, err)
	assert.ElementsMatch(t, ids[1:], others)
}

func TestMemoryItems_ListOrderingAndPaging(t *testing.T) {
	ctx := context.Background()
	items := NewMemory().Repositories().Items

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var inserted []models.Item
	for i := 0; i < 5; i++ {
		inserted = append(inserted, seedItem(t, items, models.Item{
			Name:      "item",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	rows, total, err := items.List(ctx, models.ItemFilter{}, models.Page{Number: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, rows, 2)
	assert.Equal(t, inserted[4].Id, rows[0].Id)
	assert.Equal(t, inserted[3].Id, rows[1].Id)

	rows, _, err = items.List(ctx, models.ItemFilter{}, models.Page{Number: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, inserted[0].Id, rows[0].Id)

	rows, total, err = items.List(ctx, models.ItemFilter{}, models.Page{Number: 9, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Empty(t, rows)
}

func TestMemoryItems_Filters(t *testing.T) {
	ctx := context.Background()
	items := NewMemory().Repositories().Items

	seedItem(t, items, models.Item{UserID: "u1", Name: "Blue Umbrella", Location: "Library", Category: "Accessories"})
	seedItem(t, items, models.Item{UserID: "u2", Name: "Laptop", Description: "silver, umbrella sticker", Location: "Gym", Category: "Electronics"})
	seedItem(t, items, models.Item{UserID: "u2", Name: "Keys", Location: "Library", Status: models.ItemStatusClaimed})

	count := func(f models.ItemFilter) int64 {
		_, total, err := items.List(ctx, f, models.Page{Number: 1, Limit: 10})
		require.NoError(t, err)
		return total
	}

	assert.EqualValues(t, 2, count(models.ItemFilter{Search: "UMBRELLA"}))
	assert.EqualValues(t, 2, count(models.ItemFilter{Location: "Library"}))
	assert.EqualValues(t, 0, count(models.ItemFilter{Location: "library"}))
	assert.EqualValues(t, 2, count(models.ItemFilter{UserID: "u2"}))
	assert.EqualValues(t, 1, count(models.ItemFilter{Status: "claimed"}))
	assert.EqualValues(t, 2, count(models.ItemFilter{Status: "SEARCHING"}))
	assert.EqualValues(t, 1, count(models.ItemFilter{Category: "Electronics", Search: "laptop"}))
	assert.EqualValues(t, 0, count(models.ItemFilter{Search: ".*"}))
}

func TestMemoryItems_UpdateCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	items := NewMemory().Repositories().Items

	item := seedItem(t, items, models.Item{UserID: "owner", Name: "Wallet"})

	claimed := models.ItemStatusClaimed
	claimant := "other"
	upd := models.ItemUpdate{Status: &claimed, ClaimedBy: &claimant, UpdatedAt: time.Now()}

	require.NoError(t, items.Update(ctx, item.Id.Hex(), models.ItemStatusSearching, upd))
	assert.ErrorIs(t, items.Update(ctx, item.Id.Hex(), models.ItemStatusSearching, upd), ErrStatusConflict)

	got, err := items.FindByID(ctx, item.Id.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusClaimed, got.Status)
	assert.Equal(t, "other", got.ClaimedBy)

	assert.ErrorIs(t, items.Update(ctx, primitive.NewObjectID().Hex(), "", upd), ErrNotFound)
	assert.ErrorIs(t, items.Update(ctx, "bad", "", upd), ErrInvalidID)
}

func TestMemoryItems_DeleteAndListByOwner(t *testing.T) {
	ctx := context.Background()
	items := NewMemory().Repositories().Items

	a := seedItem(t, items, models.Item{UserID: "u1", CreatedAt: time.Unix(1, 0)})
	b := seedItem(t, items, models.Item{UserID: "u1", CreatedAt: time.Unix(2, 0)})
	seedItem(t, items, models.Item{UserID: "u2"})

	owned, err := items.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, b.Id, owned[0].Id)

	require.NoError(t, items.Delete(ctx, a.Id.Hex()))
	assert.ErrorIs(t, items.Delete(ctx, a.Id.Hex()), ErrNotFound)

	_, err = items.FindByID(ctx, a.Id.Hex())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryNotifications_ReadFlow(t *testing.T) {
	ctx := context.Background()
	notifications := NewMemory().Repositories().Notifications

	item := models.Item{Id: primitive.NewObjectID(), Name: "Wallet"}
	now := time.Now()
	ns := []models.Notification{
		models.NewItemNotification("u1", item, models.NotificationTypeNew, now),
		models.NewItemNotification("u1", item, models.NotificationTypeNew, now.Add(time.Second)),
		models.NewItemNotification("u2", item, models.NotificationTypeNew, now),
	}
	require.NoError(t, notifications.InsertMany(ctx, ns))

	unread, err := notifications.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)

	rows, total, err := notifications.List(ctx, "u1", models.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, ns[1].Id, rows[0].Id)

	first := ns[0].Id.Hex()
	assert.ErrorIs(t, notifications.MarkRead(ctx, first, "u2"), ErrNotFound)
	require.NoError(t, notifications.MarkRead(ctx, first, "u1"))
	require.NoError(t, notifications.MarkRead(ctx, first, ""))

	modified, err := notifications.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, modified)

	modified, err = notifications.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, modified)

	unread, err = notifications.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, unread)

	unread, err = notifications.UnreadCount(ctx, "u2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestMemoryNotifications_InsertManyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	notifications := NewMemory().Repositories().Notifications

	item := models.Item{Id: primitive.NewObjectID()}
	ns := []models.Notification{
		models.NewItemNotification("u1", item, models.NotificationTypeNew, time.Now()),
		models.NewItemNotification("u2", item, models.NotificationTypeNew, time.Now()),
	}
	require.NoError(t, notifications.InsertMany(ctx, ns))
	assert.ErrorIs(t, notifications.InsertMany(ctx, ns), ErrDuplicate)

	_, total, err := notifications.List(ctx, "u1", models.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestMemoryNotifications_Delete(t *testing.T) {
	ctx := context.Background()
	notifications := NewMemory().Repositories().Notifications

	n := models.NewItemNotification("u1", models.Item{Id: primitive.NewObjectID()}, models.NotificationTypeClaimed, time.Now())
	require.NoError(t, notifications.Insert(ctx, &n))

	assert.ErrorIs(t, notifications.Delete(ctx, n.Id.Hex(), "u2"), ErrNotFound)
	require.NoError(t, notifications.Delete(ctx, n.Id.Hex(), "u1"))
	assert.ErrorIs(t, notifications.Delete(ctx, n.Id.Hex(), ""), ErrNotFound)
	assert.ErrorIs(t, notifications.Delete(ctx, "zzz", ""), ErrInvalidID)
}
