package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/theleywin/lostnfound-backend/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoNotifications is the NotificationRepository over the Notifications collection.
type MongoNotifications struct {
	coll *mongo.Collection
}

// byID matches one notification, optionally only when it belongs to recipient.
func byID(id, recipient string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	filter := bson.M{"_id": oid}
	if recipient != "" {
		filter["userId"] = recipient
	}
	return filter, nil
}

func (r *MongoNotifications) List(ctx context.Context, userID string, page models.Page) ([]models.Notification, int64, error) {
	filter := bson.M{"userId": userID}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("counting notifications: %w", err)
	}

	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("finding notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, 0, fmt.Errorf("decoding notifications: %w", err)
	}
	return notifications, total, nil
}

func (r *MongoNotifications) UnreadCount(ctx context.Context, userID string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"userId": userID, "read": false})
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return n, nil
}

func (r *MongoNotifications) MarkRead(ctx context.Context, id, recipient string) error {
	filter, err := byID(id, recipient)
	if err != nil {
		return err
	}

	unread := bson.M{"read": false}
	for k, v := range filter {
		unread[k] = v
	}

	result, err := r.coll.UpdateOne(ctx, unread, bson.M{"$set": bson.M{"read": true, "readAt": now()}})
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	// Already read is fine; only a missing record is an error.
	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return fmt.Errorf("checking notification: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoNotifications) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result, err := r.coll.UpdateMany(ctx,
		bson.M{"userId": userID, "read": false},
		bson.M{"$set": bson.M{"read": true, "readAt": now()}},
	)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *MongoNotifications) Delete(ctx context.Context, id, recipient string) error {
	filter, err := byID(id, recipient)
	if err != nil {
		return err
	}

	result, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoNotifications) Insert(ctx context.Context, n *models.Notification) error {
	if n.Id.IsZero() {
		n.Id = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, n); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// InsertMany writes ns unordered, so one duplicate does not stop the rest.
func (r *MongoNotifications) InsertMany(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(ns))
	for i := range ns {
		if ns[i].Id.IsZero() {
			ns[i].Id = primitive.NewObjectID()
		}
		docs = append(docs, ns[i])
	}

	_, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		if onlyDuplicates(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting notifications: %w", err)
	}
	return nil
}

// onlyDuplicates reports whether every write error in a bulk failure is a duplicate key.
func onlyDuplicates(err error) bool {
	var bulk mongo.BulkWriteException
	if !errors.As(err, &bulk) || bulk.WriteConcernError != nil || len(bulk.WriteErrors) == 0 {
		return false
	}
	for _, we := range bulk.WriteErrors {
		if we.Code != 11000 {
			return false
		}
	}
	return true
}
