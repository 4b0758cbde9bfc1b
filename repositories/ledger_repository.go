// repositories/ledger_repository.go
package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kutbulzaman/mlm_backend/config"
	"github.com/kutbulzaman/mlm_backend/models"
)

// LedgerRepository persists the financial audit trail: distribution records,
// wallet transactions, withdrawals, and placement/admin logs.
type LedgerRepository interface {
	// InsertDistribution appends a pending distribution record. A second
	// insert for the same event id fails with ErrDuplicateKey.
	InsertDistribution(ctx context.Context, dist *models.CommissionDistribution) error
	GetDistributionByEventID(ctx context.Context, eventID string) (*models.CommissionDistribution, error)
	MarkDistributionCommitted(ctx context.Context, id primitive.ObjectID) error
	DeleteDistribution(ctx context.Context, id primitive.ObjectID) error
	ListDistributions(ctx context.Context, limit int64) ([]models.CommissionDistribution, error)
	SumDistributions(ctx context.Context) (total float64, systemFund float64, err error)

	AppendTransaction(ctx context.Context, tx *models.Transaction) error
	ListTransactions(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Transaction, error)

	InsertWithdrawal(ctx context.Context, w *models.Withdrawal) error
	GetWithdrawal(ctx context.Context, id primitive.ObjectID) (*models.Withdrawal, error)
	ListWithdrawals(ctx context.Context, status string, limit int64) ([]models.Withdrawal, error)
	SetWithdrawalStatus(ctx context.Context, id primitive.ObjectID, w *models.Withdrawal) error
	CountWithdrawals(ctx context.Context, status string) (int64, error)

	InsertPlacementLog(ctx context.Context, entry *models.PlacementLog) error
	InsertAdminLog(ctx context.Context, entry *models.AdminLog) error
}

// MongoLedgerRepository implements LedgerRepository on the audit collections
type MongoLedgerRepository struct {
	distributions *mongo.Collection
	transactions  *mongo.Collection
	withdrawals   *mongo.Collection
	placementLogs *mongo.Collection
	adminLogs     *mongo.Collection
}

// NewMongoLedgerRepository creates a ledger repository bound to the configured database
func NewMongoLedgerRepository(client *mongo.Client) *MongoLedgerRepository {
	return &MongoLedgerRepository{
		distributions: config.GetCollection(client, "commission_distributions"),
		transactions:  config.GetCollection(client, "transactions"),
		withdrawals:   config.GetCollection(client, "withdrawals"),
		placementLogs: config.GetCollection(client, "placement_logs"),
		adminLogs:     config.GetCollection(client, "admin_logs"),
	}
}

func (r *MongoLedgerRepository) InsertDistribution(ctx context.Context, dist *models.CommissionDistribution) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if dist.ID.IsZero() {
		dist.ID = primitive.NewObjectID()
	}
	dist.CreatedAt = time.Now()

	_, err := r.distributions.InsertOne(ctx, dist)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *MongoLedgerRepository) GetDistributionByEventID(ctx context.Context, eventID string) (*models.CommissionDistribution, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var dist models.CommissionDistribution
	err := r.distributions.FindOne(ctx, bson.M{"eventId": eventID}).Decode(&dist)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &dist, nil
}

func (r *MongoLedgerRepository) MarkDistributionCommitted(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := time.Now()
	_, err := r.distributions.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":      models.DistributionStatusCommitted,
			"committedAt": now,
		},
	})
	return err
}

func (r *MongoLedgerRepository) DeleteDistribution(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.distributions.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoLedgerRepository) ListDistributions(ctx context.Context, limit int64) ([]models.CommissionDistribution, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(limit)
	cursor, err := r.distributions.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []models.CommissionDistribution
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *MongoLedgerRepository) SumDistributions(ctx context.Context) (float64, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pipeline := []bson.M{
		{"$match": bson.M{"status": models.DistributionStatusCommitted}},
		{"$group": bson.M{
			"_id":        nil,
			"total":      bson.M{"$sum": "$totalAmount"},
			"systemFund": bson.M{"$sum": "$systemFund"},
		}},
	}
	cursor, err := r.distributions.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	defer cursor.Close(ctx)

	var result struct {
		Total      float64 `bson:"total"`
		SystemFund float64 `bson:"systemFund"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&result); err != nil {
			return 0, 0, err
		}
	}
	return result.Total, result.SystemFund, nil
}

func (r *MongoLedgerRepository) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	tx.CreatedAt = time.Now()

	_, err := r.transactions.InsertOne(ctx, tx)
	return err
}

func (r *MongoLedgerRepository) ListTransactions(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(limit)
	cursor, err := r.transactions.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []models.Transaction
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *MongoLedgerRepository) InsertWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if w.ID.IsZero() {
		w.ID = primitive.NewObjectID()
	}
	w.CreatedAt = time.Now()

	_, err := r.withdrawals.InsertOne(ctx, w)
	return err
}

func (r *MongoLedgerRepository) GetWithdrawal(ctx context.Context, id primitive.ObjectID) (*models.Withdrawal, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var w models.Withdrawal
	err := r.withdrawals.FindOne(ctx, bson.M{"_id": id}).Decode(&w)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r *MongoLedgerRepository) ListWithdrawals(ctx context.Context, status string, limit int64) ([]models.Withdrawal, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(limit)
	cursor, err := r.withdrawals.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []models.Withdrawal
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *MongoLedgerRepository) SetWithdrawalStatus(ctx context.Context, id primitive.ObjectID, w *models.Withdrawal) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.withdrawals.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":          w.Status,
			"processedAt":     w.ProcessedAt,
			"adminId":         w.AdminID,
			"adminNote":       w.AdminNote,
			"rejectionReason": w.RejectionReason,
		},
	})
	return err
}

func (r *MongoLedgerRepository) CountWithdrawals(ctx context.Context, status string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return r.withdrawals.CountDocuments(ctx, bson.M{"status": status})
}

func (r *MongoLedgerRepository) InsertPlacementLog(ctx context.Context, entry *models.PlacementLog) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	entry.CreatedAt = time.Now()

	_, err := r.placementLogs.InsertOne(ctx, entry)
	return err
}

func (r *MongoLedgerRepository) InsertAdminLog(ctx context.Context, entry *models.AdminLog) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	entry.CreatedAt = time.Now()

	_, err := r.adminLogs.InsertOne(ctx, entry)
	return err
}
