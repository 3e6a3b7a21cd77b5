// Package services holds the business rules of the API. Methods return
// *apperr.Error values for every failure a client can cause.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/theleywin/lostnfound-backend/src/apperr"
	"github.com/theleywin/lostnfound-backend/src/models"
	"github.com/theleywin/lostnfound-backend/src/notify"
	"github.com/theleywin/lostnfound-backend/src/storage"
	"github.com/theleywin/lostnfound-backend/src/store"
)

// DateLayout is the format of Item.DateFound.
const DateLayout = "2006-01-02"

// ItemService owns the item rules and the claim workflow.
type ItemService struct {
	items         store.ItemRepository
	users         store.UserRepository
	notifications store.NotificationRepository
	images        storage.ImageStore
	notifier      notify.Notifier
	logger        *slog.Logger
	maxImageBytes int64
	now           func() time.Time
}

// ItemServiceDeps are the collaborators of an ItemService.
type ItemServiceDeps struct {
	Repos         store.Repositories
	Images        storage.ImageStore
	Notifier      notify.Notifier
	Logger        *slog.Logger
	MaxImageBytes int64
}

// NewItemService returns an item service. MaxImageBytes defaults to storage.MaxImageBytes.
func NewItemService(deps ItemServiceDeps) *ItemService {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxImageBytes <= 0 {
		deps.MaxImageBytes = storage.MaxImageBytes
	}
	return &ItemService{
		items:         deps.Repos.Items,
		users:         deps.Repos.Users,
		notifications: deps.Repos.Notifications,
		images:        deps.Images,
		notifier:      deps.Notifier,
		logger:        deps.Logger,
		maxImageBytes: deps.MaxImageBytes,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// ItemPage is one page of an item listing.
type ItemPage struct {
	Items      []models.Item     `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

// NewItem holds the fields of an item posting.
type NewItem struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Description string `json:"description"`
	DateFound   string `json:"dateFound"`
	Category    string `json:"category"`
}

func (n *NewItem) trim() {
	n.Name = strings.TrimSpace(n.Name)
	n.Location = strings.TrimSpace(n.Location)
	n.Description = strings.TrimSpace(n.Description)
	n.DateFound = strings.TrimSpace(n.DateFound)
	n.Category = strings.TrimSpace(n.Category)
}

// Validate checks required fields and the dateFound format.
func (n NewItem) Validate() error {
	err := validation.ValidateStruct(&n,
		validation.Field(&n.Name, validation.Required),
		validation.Field(&n.Location, validation.Required),
		validation.Field(&n.Description, validation.Required),
		validation.Field(&n.DateFound, validation.Required),
		validation.Field(&n.Category, validation.Required),
	)
	if err != nil {
		return apperr.Validation("Missing required fields.")
	}
	if err := validation.Validate(n.DateFound, validation.By(isDate)); err != nil {
		return apperr.Validation("Invalid dateFound. Use YYYY-MM-DD.")
	}
	return nil
}

func isDate(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return errors.New("must be a date formatted as YYYY-MM-DD")
	}
	return nil
}

// ItemChanges is a partial item update as sent by a client. Empty strings
// count as absent. Image distinguishes an explicit null from an absent field.
type ItemChanges struct {
	Name        *string               `json:"name"`
	Location    *string               `json:"location"`
	Description *string               `json:"description"`
	DateFound   *string               `json:"dateFound"`
	Category    *string               `json:"category"`
	Image       models.OptionalString `json:"image"`
	Status      *string               `json:"status"`
}

// fields returns the descriptive part of c with blank values dropped.
func (c ItemChanges) fields() models.ItemUpdate {
	return models.ItemUpdate{
		Name:        nonBlank(c.Name),
		Location:    nonBlank(c.Location),
		Description: nonBlank(c.Description),
		DateFound:   nonBlank(c.DateFound),
		Category:    nonBlank(c.Category),
		Image:       c.Image,
	}
}

func nonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// List returns a page of items matching filter, newest first.
func (s *ItemService) List(ctx context.Context, filter models.ItemFilter, page models.Page) (*ItemPage, error) {
	items, total, err := s.items.List(ctx, filter, page)
	if err != nil {
		return nil, apperr.Internal("listing items", err)
	}
	return &ItemPage{Items: items, Pagination: models.NewPagination(page, total)}, nil
}

// ListByOwner returns every item posted by userID.
func (s *ItemService) ListByOwner(ctx context.Context, userID string) ([]models.Item, error) {
	items, err := s.items.ListByOwner(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("listing user items", err)
	}
	return items, nil
}

// Get returns one item.
func (s *ItemService) Get(ctx context.Context, id string) (*models.Item, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, itemError(err)
	}
	return item, nil
}

// Create stores a new item owned by ownerID. The item always starts out as
// SEARCHING. Every other user gets a "new" notification in the background.
func (s *ItemService) Create(ctx context.Context, ownerID string, in NewItem, image *storage.Upload) (*models.Item, error) {
	in.trim()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var ref *string
	var stored string
	if image != nil {
		if err := storage.Validate(*image, s.maxImageBytes); err != nil {
			return nil, s.uploadError(err)
		}
		saved, err := s.images.Save(ctx, *image)
		if err != nil {
			return nil, apperr.Internal("saving image", err)
		}
		ref = &saved
		stored = saved
	}

	now := s.now()
	item := models.Item{
		UserID:      ownerID,
		Name:        in.Name,
		Location:    in.Location,
		Description: in.Description,
		DateFound:   in.DateFound,
		Category:    in.Category,
		Image:       ref,
		StoredImage: stored,
		Status:      models.ItemStatusSearching,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.items.Insert(ctx, &item); err != nil {
		if ref != nil {
			s.removeImage(ctx, *ref)
		}
		return nil, apperr.Internal("creating item", err)
	}

	s.notifyNewItem(item)
	return &item, nil
}

// Update applies changes requested by actorID. Owners may change any field.
// Anybody else may only move a SEARCHING item to a claim status, which also
// notifies the owner.
func (s *ItemService) Update(ctx context.Context, actorID, id string, changes ItemChanges) error {
	var requested *models.ItemStatus
	if raw := nonBlank(changes.Status); raw != nil {
		status, ok := models.ParseItemStatus(*raw)
		if !ok {
			return apperr.Validation("Invalid status. Use SEARCHING, CLAIM_REQUESTED or CLAIMED.")
		}
		requested = &status
	}

	fields := changes.fields()
	if fields.DateFound != nil {
		if err := isDate(*fields.DateFound); err != nil {
			return apperr.Validation("Invalid dateFound. Use YYYY-MM-DD.")
		}
	}

	// A lost race on the status is retried once against the fresh document.
	for attempt := 0; ; attempt++ {
		item, err := s.items.FindByID(ctx, id)
		if err != nil {
			return itemError(err)
		}
		item.Status = models.NormalizeItemStatus(string(item.Status))

		update, claimed, err := s.planUpdate(actorID, *item, requested, fields)
		if err != nil {
			return err
		}

		var expected models.ItemStatus
		if requested != nil {
			expected = item.Status
		}

		err = s.items.Update(ctx, id, expected, update)
		if errors.Is(err, store.ErrStatusConflict) {
			if attempt == 0 {
				continue
			}
			return apperr.Conflict("Item status changed while updating. Please try again.")
		}
		if err != nil {
			return itemError(err)
		}

		if claimed {
			s.notifyClaim(*item)
		}
		if update.StoredImage != nil {
			s.removeImage(ctx, item.StoredImage)
		}
		return nil
	}
}

// planUpdate checks the ownership and claim rules for one attempt and builds
// the write. claimed reports whether a non-owner is claiming the item.
func (s *ItemService) planUpdate(actorID string, item models.Item, requested *models.ItemStatus, fields models.ItemUpdate) (models.ItemUpdate, bool, error) {
	isClaiming := requested != nil && requested.IsClaim() && item.Status == models.ItemStatusSearching
	isOwner := item.UserID == actorID

	if !isClaiming && !isOwner {
		return models.ItemUpdate{}, false, apperr.Forbidden("You can only update your own items.")
	}
	if isClaiming && !isOwner && !fields.Empty() {
		return models.ItemUpdate{}, false, apperr.Forbidden("You can only claim items. Only the owner can update other fields.")
	}
	if isOwner && requested != nil && *requested == models.ItemStatusClaimRequested {
		return models.ItemUpdate{}, false, apperr.Validation("You cannot request a claim on your own item.")
	}

	update := fields
	update.Status = requested
	if update.Empty() {
		return models.ItemUpdate{}, false, apperr.Validation("No fields to update.")
	}
	update.UpdatedAt = s.now()

	// The uploaded image is released once the item stops pointing at it.
	if item.StoredImage != "" && update.Image.Set &&
		(update.Image.Value == nil || *update.Image.Value != item.StoredImage) {
		released := ""
		update.StoredImage = &released
	}

	claimed := isClaiming && !isOwner
	switch {
	case claimed:
		claimant := actorID
		update.ClaimedBy = &claimant
	case requested != nil && *requested == models.ItemStatusSearching && item.ClaimedBy != "":
		cleared := ""
		update.ClaimedBy = &cleared
	}

	return update, claimed, nil
}

// Delete removes an item owned by actorID together with its stored image.
func (s *ItemService) Delete(ctx context.Context, actorID, id string) error {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return itemError(err)
	}
	if item.UserID != actorID {
		return apperr.Forbidden("You can only delete your own items.")
	}

	if err := s.items.Delete(ctx, id); err != nil {
		return itemError(err)
	}

	if item.StoredImage != "" {
		s.removeImage(ctx, item.StoredImage)
	}
	return nil
}

// notifyNewItem fans a "new" notification out to every user but the owner.
// The recipient list and notification ids are fixed on the first attempt so
// retries never write a notification twice.
func (s *ItemService) notifyNewItem(item models.Item) {
	var batch []models.Notification

	s.notifier.Submit(notify.Task{
		Name: "new-item:" + item.Id.Hex(),
		Run: func(ctx context.Context) error {
			if batch == nil {
				recipients, err := s.users.ListIDsExcept(ctx, item.UserID)
				if err != nil {
					return fmt.Errorf("listing recipients: %w", err)
				}
				batch = make([]models.Notification, 0, len(recipients))
				for _, recipient := range recipients {
					batch = append(batch, models.NewItemNotification(recipient, item, models.NotificationTypeNew, item.CreatedAt))
				}
			}
			if len(batch) == 0 {
				return nil
			}
			if err := s.notifications.InsertMany(ctx, batch); err != nil && !errors.Is(err, store.ErrDuplicate) {
				return err
			}
			return nil
		},
	})
}

// notifyClaim tells the owner that somebody claimed item.
func (s *ItemService) notifyClaim(item models.Item) {
	n := models.NewItemNotification(item.UserID, item, models.NotificationTypeClaimed, s.now())

	s.notifier.Submit(notify.Task{
		Name: "claim:" + item.Id.Hex(),
		Run: func(ctx context.Context) error {
			if err := s.notifications.Insert(ctx, &n); err != nil && !errors.Is(err, store.ErrDuplicate) {
				return err
			}
			return nil
		},
	})
}

// removeImage deletes a stored image. Failures are logged only.
func (s *ItemService) removeImage(ctx context.Context, ref string) {
	err := s.images.Delete(context.WithoutCancel(ctx), ref)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrUnknownRef):
		s.logger.Debug("skipping image not held by the store", "image", ref)
	default:
		s.logger.Error("removing image", "image", ref, "error", err)
	}
}


func itemError(err error) error {
	switch {
	case errors.Is(err, store.ErrInvalidID):
		return apperr.Validation("Invalid item ID.")
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("Item not found.")
	}
	return apperr.Internal("accessing item", err)
}

func (s *ItemService) uploadError(err error) error {
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return apperr.Validation(fmt.Sprintf("File size too large. Maximum size is %dMB.", s.maxImageBytes>>20))
	case errors.Is(err, storage.ErrNotImage):
		return apperr.Validation("Only image files are allowed.")
	}
	return apperr.Validation("Invalid image upload.")
}
