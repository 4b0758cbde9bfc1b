// repositories/member_repository.go
package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kutbulzaman/mlm_backend/config"
	"github.com/kutbulzaman/mlm_backend/models"
)

// ErrNotFound is returned when a looked-up record does not exist
var ErrNotFound = errors.New("record not found")

// ErrDuplicateKey is returned when an insert violates a unique index
var ErrDuplicateKey = errors.New("duplicate key")

// MemberRepository is the registry port the placement and commission engines
// work against. Every tree or wallet mutation in the system goes through it.
type MemberRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByMemberID(ctx context.Context, memberID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	ListBySponsor(ctx context.Context, sponsorID primitive.ObjectID) ([]models.User, error)

	// SetChild writes one child slot on a parent; nil childID clears the slot.
	SetChild(ctx context.Context, parentID primitive.ObjectID, position string, childID *primitive.ObjectID) error
	// SetParent mirrors the link on the child record.
	SetParent(ctx context.Context, childID primitive.ObjectID, parentID *primitive.ObjectID, position string) error

	// IncrementWallet atomically credits one bonus field; balance and
	// totalEarnings move together with it. Negative amounts roll back.
	IncrementWallet(ctx context.Context, id primitive.ObjectID, field string, amount float64) error
	// AdjustBalance moves only the spendable balance (withdrawals, transfers).
	AdjustBalance(ctx context.Context, id primitive.ObjectID, amount float64) error

	IncrementInvestment(ctx context.Context, id primitive.ObjectID, amount float64) error
	IncrementDirectReferrals(ctx context.Context, id primitive.ObjectID) error
	SetTeamSize(ctx context.Context, id primitive.ObjectID, size int) error
	SetCareerLevel(ctx context.Context, id primitive.ObjectID, levelID int) error
	SetMembership(ctx context.Context, id primitive.ObjectID, membershipType string, expiresAt *time.Time) error
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
	SetBankDetails(ctx context.Context, id primitive.ObjectID, details *models.BankDetails) error

	// NextMemberSequence returns the next value of the member-code counter.
	NextMemberSequence(ctx context.Context) (int64, error)
}

// MongoMemberRepository implements MemberRepository on the users collection
type MongoMemberRepository struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

// NewMongoMemberRepository creates a member repository bound to the configured database
func NewMongoMemberRepository(client *mongo.Client) *MongoMemberRepository {
	return &MongoMemberRepository{
		collection: config.GetCollection(client, "users"),
		counters:   config.GetCollection(client, "counters"),
	}
}

func (r *MongoMemberRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoMemberRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"referralCode": code})
}

func (r *MongoMemberRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoMemberRepository) GetByMemberID(ctx context.Context, memberID string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"memberId": memberID})
}

func (r *MongoMemberRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var user models.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *MongoMemberRepository) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *MongoMemberRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return r.collection.CountDocuments(ctx, bson.M{})
}

func (r *MongoMemberRepository) CountActive(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return r.collection.CountDocuments(ctx, bson.M{"isActive": true})
}

func (r *MongoMemberRepository) ListBySponsor(ctx context.Context, sponsorID primitive.ObjectID) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"createdAt": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"sponsorId": sponsorID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *MongoMemberRepository) SetChild(ctx context.Context, parentID primitive.ObjectID, position string, childID *primitive.ObjectID) error {
	field := "leftChild"
	if position == models.PositionRight {
		field = "rightChild"
	}

	update := bson.M{"$set": bson.M{"updatedAt": time.Now()}}
	if childID != nil {
		update["$set"].(bson.M)[field] = *childID
	} else {
		update["$unset"] = bson.M{field: ""}
	}

	return r.updateOne(ctx, parentID, update)
}

func (r *MongoMemberRepository) SetParent(ctx context.Context, childID primitive.ObjectID, parentID *primitive.ObjectID, position string) error {
	update := bson.M{"$set": bson.M{"updatedAt": time.Now()}}
	if parentID != nil {
		update["$set"].(bson.M)["parentId"] = *parentID
		update["$set"].(bson.M)["position"] = position
	} else {
		update["$unset"] = bson.M{"parentId": "", "position": ""}
	}

	return r.updateOne(ctx, childID, update)
}

func (r *MongoMemberRepository) IncrementWallet(ctx context.Context, id primitive.ObjectID, field string, amount float64) error {
	update := bson.M{
		"$inc": bson.M{
			"wallet.balance":        amount,
			"wallet.totalEarnings":  amount,
			"wallet." + field:       amount,
		},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	return r.updateOne(ctx, id, update)
}

func (r *MongoMemberRepository) AdjustBalance(ctx context.Context, id primitive.ObjectID, amount float64) error {
	update := bson.M{
		"$inc": bson.M{"wallet.balance": amount},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	return r.updateOne(ctx, id, update)
}

func (r *MongoMemberRepository) IncrementInvestment(ctx context.Context, id primitive.ObjectID, amount float64) error {
	update := bson.M{
		"$inc": bson.M{"totalInvestment": amount},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	return r.updateOne(ctx, id, update)
}

func (r *MongoMemberRepository) IncrementDirectReferrals(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{
		"$inc": bson.M{"directReferrals": 1},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	return r.updateOne(ctx, id, update)
}

func (r *MongoMemberRepository) SetTeamSize(ctx context.Context, id primitive.ObjectID, size int) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"totalTeamSize": size, "updatedAt": time.Now()}})
}

func (r *MongoMemberRepository) SetCareerLevel(ctx context.Context, id primitive.ObjectID, levelID int) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"careerLevelId": levelID, "updatedAt": time.Now()}})
}

func (r *MongoMemberRepository) SetMembership(ctx context.Context, id primitive.ObjectID, membershipType string, expiresAt *time.Time) error {
	set := bson.M{
		"membershipType": membershipType,
		"isActive":       true,
		"updatedAt":      time.Now(),
	}
	if expiresAt != nil {
		set["membershipExpiresAt"] = *expiresAt
	}
	return r.updateOne(ctx, id, bson.M{"$set": set})
}

func (r *MongoMemberRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"isActive": active, "updatedAt": time.Now()}})
}

func (r *MongoMemberRepository) SetBankDetails(ctx context.Context, id primitive.ObjectID, details *models.BankDetails) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"bankDetails": details, "updatedAt": time.Now()}})
}

func (r *MongoMemberRepository) NextMemberSequence(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var counter struct {
		Sequence int64 `bson:"sequence"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "memberId"},
		bson.M{"$inc": bson.M{"sequence": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Sequence, nil
}

func (r *MongoMemberRepository) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
