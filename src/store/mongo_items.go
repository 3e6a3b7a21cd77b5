package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/theleywin/lostnfound-backend/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// newestFirst is the ordering of every listing.
var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// MongoItems is the ItemRepository over the Items collection.
type MongoItems struct {
	coll *mongo.Collection
}

// itemFilter translates f into a query document. The search term is matched
// literally, case-insensitively, against the text fields.
func itemFilter(f models.ItemFilter) bson.M {
	filter := bson.M{}

	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	if f.Status != "" {
		if status, ok := models.ParseItemStatus(f.Status); ok {
			filter["status"] = bson.M{"$in": status.Spellings()}
		} else {
			filter["status"] = f.Status
		}
	}
	if f.Location != "" {
		filter["location"] = f.Location
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.DateFound != "" {
		filter["dateFound"] = f.DateFound
	}
	if f.Search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": rx},
			bson.M{"description": rx},
			bson.M{"location": rx},
			bson.M{"category": rx},
		}
	}

	return filter
}

// itemUpdateDoc builds the $set/$unset document for u.
func itemUpdateDoc(u models.ItemUpdate) bson.M {
	set := bson.M{"updatedAt": u.UpdatedAt}
	unset := bson.M{}

	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Location != nil {
		set["location"] = *u.Location
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.DateFound != nil {
		set["dateFound"] = *u.DateFound
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Image.Set {
		set["image"] = u.Image.Value
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	if u.ClaimedBy != nil {
		if *u.ClaimedBy == "" {
			unset["claimedBy"] = ""
		} else {
			set["claimedBy"] = *u.ClaimedBy
		}
	}

	if u.StoredImage != nil {
		if *u.StoredImage == "" {
			unset["storedImage"] = ""
		} else {
			set["storedImage"] = *u.StoredImage
		}
	}

	doc := bson.M{"$set": set}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}
	return doc
}

func (r *MongoItems) List(ctx context.Context, f models.ItemFilter, page models.Page) ([]models.Item, int64, error) {
	filter := itemFilter(f)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("counting items: %w", err)
	}

	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))

	items, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *MongoItems) ListByOwner(ctx context.Context, userID string) ([]models.Item, error) {
	return r.find(ctx, bson.M{"userId": userID}, options.Find().SetSort(newestFirst))
}

func (r *MongoItems) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Item, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("finding items: %w", err)
	}
	defer cursor.Close(ctx)

	items := []models.Item{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decoding items: %w", err)
	}
	return items, nil
}

func (r *MongoItems) FindByID(ctx context.Context, id string) (*models.Item, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	var item models.Item
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding item: %w", err)
	}
	return &item, nil
}

func (r *MongoItems) Insert(ctx context.Context, item *models.Item) error {
	if item.Id.IsZero() {
		item.Id = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}

func (r *MongoItems) Update(ctx context.Context, id string, expectedStatus models.ItemStatus, update models.ItemUpdate) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}

	filter := bson.M{"_id": oid}
	if expectedStatus != "" {
		filter["status"] = bson.M{"$in": expectedStatus.Spellings()}
	}

	result, err := r.coll.UpdateOne(ctx, filter, itemUpdateDoc(update))
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	if expectedStatus != "" {
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return fmt.Errorf("checking item: %w", err)
		}
		if n > 0 {
			return ErrStatusConflict
		}
	}
	return ErrNotFound
}

func (r *MongoItems) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
