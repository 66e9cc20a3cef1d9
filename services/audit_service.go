package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"vaultdrive/models"
	"vaultdrive/utils"
)

const defaultAuditPageSize = 50

type AuditService struct {
	logs   *mongo.Collection
	logger *zap.SugaredLogger
}

type AuditQuery struct {
	ItemID  string
	ActorID string
	Action  string
	// Before is an opaque cursor: the hex id of the last entry from the
	// previous page.
	Before string
	Limit  int64
}

func NewAuditService(db *mongo.Database, logger *zap.SugaredLogger) *AuditService {
	return &AuditService{
		logs:   db.Collection("audit_logs"),
		logger: logger,
	}
}

// Record appends an audit entry. Failures are logged and swallowed so that
// auditing never fails the operation it describes.
func (s *AuditService) Record(ctx context.Context, entry models.AuditLogEntry) {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if _, err := s.logs.InsertOne(ctx, entry); err != nil {
		s.logger.Warnw("failed to record audit entry",
			"action", entry.Action, "item", entry.ItemID.Hex(), "error", err)
	}
}

// List returns audit entries newest first, paginated by _id cursor.
func (s *AuditService) List(ctx context.Context, q AuditQuery) ([]models.AuditLogEntry, error) {
	filter := bson.M{}
	if q.ItemID != "" {
		itemObjID, err := primitive.ObjectIDFromHex(q.ItemID)
		if err != nil {
			return nil, utils.InvalidArgumentf("invalid item ID")
		}
		filter["item_id"] = itemObjID
	}
	if q.ActorID != "" {
		filter["actor_id"] = q.ActorID
	}
	if q.Action != "" {
		filter["action"] = q.Action
	}
	if q.Before != "" {
		beforeID, err := primitive.ObjectIDFromHex(q.Before)
		if err != nil {
			return nil, utils.InvalidArgumentf("invalid cursor")
		}
		filter["_id"] = bson.M{"$lt": beforeID}
	}

	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = defaultAuditPageSize
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.logs.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.Internalf(err, "failed to query audit logs")
	}
	defer cursor.Close(ctx)

	var entries []models.AuditLogEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, utils.Internalf(err, "failed to decode audit logs")
	}
	return entries, nil
}
