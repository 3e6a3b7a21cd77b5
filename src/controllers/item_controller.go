package controllers

import (
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/theleywin/lostnfound-backend/src/lib"
	"github.com/theleywin/lostnfound-backend/src/middleware"
	"github.com/theleywin/lostnfound-backend/src/models"
	"github.com/theleywin/lostnfound-backend/src/services"
	"github.com/theleywin/lostnfound-backend/src/storage"
)

// ItemController serves the /api/items routes.
type ItemController struct {
	items *services.ItemService
}

// NewItemController returns a controller backed by items.
func NewItemController(items *services.ItemService) *ItemController {
	return &ItemController{items: items}
}

// GetItems lists items matching the query filters, newest first
func (ic *ItemController) GetItems(c *fiber.Ctx) error {
	filter := models.ItemFilter{
		UserID:    c.Query("userId"),
		Status:    c.Query("status"),
		Location:  c.Query("location"),
		Category:  c.Query("category"),
		DateFound: c.Query("dateFound"),
		Search:    strings.TrimSpace(c.Query("search")),
	}
	page := models.ParsePage(c.Query("page"), c.Query("limit"), models.DefaultItemsPerPage)

	result, err := ic.items.List(c.UserContext(), filter, page)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// GetItem returns the item in :id
func (ic *ItemController) GetItem(c *fiber.Ctx) error {
	item, err := ic.items.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(item)
}

// GetItemsByUser returns every item posted by :userId
func (ic *ItemController) GetItemsByUser(c *fiber.Ctx) error {
	items, err := ic.items.ListByOwner(c.UserContext(), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(items)
}

// CreateItem accepts a multipart form with an optional "image" file, or a JSON body
func (ic *ItemController) CreateItem(c *fiber.Ctx) error {
	var in services.NewItem
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		if err := parseBody(c, &in); err != nil {
			return err
		}
	} else {
		in = services.NewItem{
			Name:        c.FormValue("name"),
			Location:    c.FormValue("location"),
			Description: c.FormValue("description"),
			DateFound:   c.FormValue("dateFound"),
			Category:    c.FormValue("category"),
		}
	}

	var upload *storage.Upload
	if fh, err := c.FormFile("image"); err == nil {
		file, err := fh.Open()
		if err != nil {
			return err
		}
		defer file.Close()
		upload = uploadFrom(fh, file)
	}

	item, err := ic.items.Create(c.UserContext(), middleware.CurrentUserID(c), in, upload)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(lib.MessageWith("Item created successfully.", fiber.Map{
		"itemId": item.Id,
		"item":   item,
	}))
}

func uploadFrom(fh *multipart.FileHeader, file multipart.File) *storage.Upload {
	return &storage.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        file,
	}
}

// UpdateItem lets the owner edit an item and anybody else claim it
func (ic *ItemController) UpdateItem(c *fiber.Ctx) error {
	var changes services.ItemChanges
	if err := parseBody(c, &changes); err != nil {
		return err
	}

	if err := ic.items.Update(c.UserContext(), middleware.CurrentUserID(c), c.Params("id"), changes); err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Item updated successfully."))
}

// DeleteItem removes an item owned by the caller
func (ic *ItemController) DeleteItem(c *fiber.Ctx) error {
	if err := ic.items.Delete(c.UserContext(), middleware.CurrentUserID(c), c.Params("id")); err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Item deleted successfully."))
}
