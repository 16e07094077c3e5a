package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medreza/bookstore-voucher-service/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const notificationsCollection = "notifications"

type notificationDocument struct {
	ID        string     `bson:"_id"`
	Type      string     `bson:"type"`
	Title     string     `bson:"title"`
	Message   string     `bson:"message"`
	Status    string     `bson:"status"`
	Error     string     `bson:"error,omitempty"`
	CreatedAt time.Time  `bson:"created_at"`
	SentAt    *time.Time `bson:"sent_at,omitempty"`
}

// MongoNotificationRepository keeps the notification history in MongoDB for
// deployments that do not want it in the relational store.
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{collection: db.Collection(notificationsCollection)}
}

func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("unable to ping mongodb: %w", err)
	}
	return client, nil
}

func (r *MongoNotificationRepository) RecordNotification(ctx context.Context, n *models.Notification) error {
	doc := notificationDocument{
		ID:        n.ID.String(),
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Status:    string(n.Status),
		Error:     n.Error,
		CreatedAt: n.CreatedAt,
		SentAt:    n.SentAt,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

func (r *MongoNotificationRepository) ListNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Notification
	for cursor.Next(ctx) {
		var doc notificationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode notification: %w", err)
		}
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse notification id: %w", err)
		}
		out = append(out, models.Notification{
			ID:        id,
			Type:      doc.Type,
			Title:     doc.Title,
			Message:   doc.Message,
			Status:    models.NotificationStatus(doc.Status),
			Error:     doc.Error,
			CreatedAt: doc.CreatedAt,
			SentAt:    doc.SentAt,
		})
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return out, nil
}
