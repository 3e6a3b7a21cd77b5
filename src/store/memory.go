package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/theleywin/lostnfound-backend/src/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory keeps every collection in process memory. It backs the "memory"
// database driver and the tests.
type Memory struct {
	mu            sync.RWMutex
	users         map[primitive.ObjectID]models.User
	items         map[primitive.ObjectID]models.Item
	notifications map[primitive.ObjectID]models.Notification
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:         make(map[primitive.ObjectID]models.User),
		items:         make(map[primitive.ObjectID]models.Item),
		notifications: make(map[primitive.ObjectID]models.Notification),
	}
}

// Repositories exposes m through the repository interfaces.
func (m *Memory) Repositories() Repositories {
	return Repositories{
		Users:         memoryUsers{m},
		Items:         memoryItems{m},
		Notifications: memoryNotifications{m},
	}
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

// newer orders by createdAt then id, both descending.
func newer(aTime, bTime int64, aID, bID primitive.ObjectID) bool {
	if aTime != bTime {
		return aTime > bTime
	}
	return aID.Hex() > bID.Hex()
}

func paginate[T any](rows []T, page models.Page) []T {
	start := page.Skip()
	if start >= int64(len(rows)) {
		return []T{}
	}
	end := start + int64(page.Limit)
	if end > int64(len(rows)) {
		end = int64(len(rows))
	}
	return rows[start:end]
}

type memoryUsers struct{ m *Memory }

func (r memoryUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	user, ok := r.m.users[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r memoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	for _, user := range r.m.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryUsers) Insert(_ context.Context, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, existing := range r.m.users {
		if existing.Email == user.Email {
			return ErrDuplicate
		}
	}
	if user.Id.IsZero() {
		user.Id = primitive.NewObjectID()
	}
	if _, ok := r.m.users[user.Id]; ok {
		return ErrDuplicate
	}
	r.m.users[user.Id] = *user
	return nil
}

func (r memoryUsers) Update(_ context.Context, id string, update models.UserUpdate) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	user, ok := r.m.users[oid]
	if !ok {
		return ErrNotFound
	}
	if update.Email != nil {
		for otherID, other := range r.m.users {
			if otherID != oid && other.Email == *update.Email {
				return ErrDuplicate
			}
		}
		user.Email = *update.Email
	}
	if update.NUID != nil {
		user.NUID = *update.NUID
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Phone != nil {
		user.Phone = *update.Phone
	}
	updatedAt := update.UpdatedAt
	user.UpdatedAt = &updatedAt

	r.m.users[oid] = user
	return nil
}

func (r memoryUsers) SetPasswordHash(_ context.Context, id, hash string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	user, ok := r.m.users[oid]
	if !ok {
		return ErrNotFound
	}
	user.PasswordHash = hash
	updatedAt := now()
	user.UpdatedAt = &updatedAt
	r.m.users[oid] = user
	return nil
}

func (r memoryUsers) ListIDsExcept(_ context.Context, id string) ([]string, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	ids := make([]string, 0, len(r.m.users))
	for oid := range r.m.users {
		if oid.Hex() != id {
			ids = append(ids, oid.Hex())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type memoryItems struct{ m *Memory }

func matchesItem(item models.Item, f models.ItemFilter) bool {
	if f.UserID != "" && item.UserID != f.UserID {
		return false
	}
	if f.Status != "" {
		if models.NormalizeItemStatus(string(item.Status)) != models.NormalizeItemStatus(f.Status) {
			return false
		}
	}
	if f.Location != "" && item.Location != f.Location {
		return false
	}
	if f.Category != "" && item.Category != f.Category {
		return false
	}
	if f.DateFound != "" && item.DateFound != f.DateFound {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		found := false
		for _, field := range []string{item.Name, item.Description, item.Location, item.Category} {
			if strings.Contains(strings.ToLower(field), term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r memoryItems) sorted(f models.ItemFilter) []models.Item {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	rows := []models.Item{}
	for _, item := range r.m.items {
		if matchesItem(item, f) {
			rows = append(rows, item)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return newer(rows[i].CreatedAt.UnixNano(), rows[j].CreatedAt.UnixNano(), rows[i].Id, rows[j].Id)
	})
	return rows
}

func (r memoryItems) List(_ context.Context, f models.ItemFilter, page models.Page) ([]models.Item, int64, error) {
	rows := r.sorted(f)
	return paginate(rows, page), int64(len(rows)), nil
}

func (r memoryItems) ListByOwner(_ context.Context, userID string) ([]models.Item, error) {
	return r.sorted(models.ItemFilter{UserID: userID}), nil
}

func (r memoryItems) FindByID(_ context.Context, id string) (*models.Item, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	item, ok := r.m.items[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (r memoryItems) Insert(_ context.Context, item *models.Item) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if item.Id.IsZero() {
		item.Id = primitive.NewObjectID()
	}
	if _, ok := r.m.items[item.Id]; ok {
		return ErrDuplicate
	}
	r.m.items[item.Id] = *item
	return nil
}

func (r memoryItems) Update(_ context.Context, id string, expectedStatus models.ItemStatus, update models.ItemUpdate) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	item, ok := r.m.items[oid]
	if !ok {
		return ErrNotFound
	}
	if expectedStatus != "" && models.NormalizeItemStatus(string(item.Status)) != models.NormalizeItemStatus(string(expectedStatus)) {
		return ErrStatusConflict
	}
	r.m.items[oid] = update.Apply(item)
	return nil
}

func (r memoryItems) Delete(_ context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.items[oid]; !ok {
		return ErrNotFound
	}
	delete(r.m.items, oid)
	return nil
}

type memoryNotifications struct{ m *Memory }

func (r memoryNotifications) List(_ context.Context, userID string, page models.Page) ([]models.Notification, int64, error) {
	r.m.mu.RLock()
	rows := []models.Notification{}
	for _, n := range r.m.notifications {
		if n.UserID == userID {
			rows = append(rows, n)
		}
	}
	r.m.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		return newer(rows[i].CreatedAt.UnixNano(), rows[j].CreatedAt.UnixNano(), rows[i].Id, rows[j].Id)
	})
	return paginate(rows, page), int64(len(rows)), nil
}

func (r memoryNotifications) UnreadCount(_ context.Context, userID string) (int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var n int64
	for _, notification := range r.m.notifications {
		if notification.UserID == userID && !notification.Read {
			n++
		}
	}
	return n, nil
}

func (r memoryNotifications) lookup(id, recipient string) (primitive.ObjectID, models.Notification, error) {
	oid, err := parseID(id)
	if err != nil {
		return oid, models.Notification{}, err
	}
	n, ok := r.m.notifications[oid]
	if !ok || (recipient != "" && n.UserID != recipient) {
		return oid, models.Notification{}, ErrNotFound
	}
	return oid, n, nil
}

func (r memoryNotifications) MarkRead(_ context.Context, id, recipient string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	oid, n, err := r.lookup(id, recipient)
	if err != nil {
		return err
	}
	if n.Read {
		return nil
	}
	readAt := now()
	n.Read = true
	n.ReadAt = &readAt
	r.m.notifications[oid] = n
	return nil
}

func (r memoryNotifications) MarkAllRead(_ context.Context, userID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	readAt := now()
	var modified int64
	for oid, n := range r.m.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			n.ReadAt = &readAt
			r.m.notifications[oid] = n
			modified++
		}
	}
	return modified, nil
}

func (r memoryNotifications) Delete(_ context.Context, id, recipient string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	oid, _, err := r.lookup(id, recipient)
	if err != nil {
		return err
	}
	delete(r.m.notifications, oid)
	return nil
}

func (r memoryNotifications) Insert(_ context.Context, n *models.Notification) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if n.Id.IsZero() {
		n.Id = primitive.NewObjectID()
	}
	if _, ok := r.m.notifications[n.Id]; ok {
		return ErrDuplicate
	}
	r.m.notifications[n.Id] = *n
	return nil
}

func (r memoryNotifications) InsertMany(_ context.Context, ns []models.Notification) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	duplicates := 0
	for i := range ns {
		if ns[i].Id.IsZero() {
			ns[i].Id = primitive.NewObjectID()
		}
		if _, ok := r.m.notifications[ns[i].Id]; ok {
			duplicates++
			continue
		}
		r.m.notifications[ns[i].Id] = ns[i]
	}
	if duplicates > 0 {
		return ErrDuplicate
	}
	return nil
}
