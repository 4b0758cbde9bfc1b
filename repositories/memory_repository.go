// repositories/memory_repository.go
package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kutbulzaman/mlm_backend/models"
)

// MemoryMemberRepository is an in-memory MemberRepository used by the engine
// tests and local development without a MongoDB instance.
type MemoryMemberRepository struct {
	mu       sync.RWMutex
	users    map[primitive.ObjectID]*models.User
	sequence int64
}

// NewMemoryMemberRepository creates an empty in-memory registry
func NewMemoryMemberRepository() *MemoryMemberRepository {
	return &MemoryMemberRepository{users: make(map[primitive.ObjectID]*models.User)}
}

func copyUser(u *models.User) *models.User {
	clone := *u
	if u.SponsorID != nil {
		id := *u.SponsorID
		clone.SponsorID = &id
	}
	if u.ParentID != nil {
		id := *u.ParentID
		clone.ParentID = &id
	}
	if u.LeftChild != nil {
		id := *u.LeftChild
		clone.LeftChild = &id
	}
	if u.RightChild != nil {
		id := *u.RightChild
		clone.RightChild = &id
	}
	if u.BankDetails != nil {
		details := *u.BankDetails
		clone.BankDetails = &details
	}
	return &clone
}

func (r *MemoryMemberRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(user), nil
}

func (r *MemoryMemberRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return u.ReferralCode == code })
}

func (r *MemoryMemberRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return u.Email == email })
}

func (r *MemoryMemberRepository) GetByMemberID(ctx context.Context, memberID string) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return u.MemberID == memberID })
}

func (r *MemoryMemberRepository) findBy(match func(*models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if match(user) {
			return copyUser(user), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryMemberRepository) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	for _, existing := range r.users {
		if existing.Email == user.Email || existing.ReferralCode == user.ReferralCode {
			return ErrDuplicateKey
		}
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *MemoryMemberRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

func (r *MemoryMemberRepository) CountActive(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, user := range r.users {
		if user.IsActive {
			count++
		}
	}
	return count, nil
}

func (r *MemoryMemberRepository) ListBySponsor(ctx context.Context, sponsorID primitive.ObjectID) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []models.User
	for _, user := range r.users {
		if user.SponsorID != nil && *user.SponsorID == sponsorID {
			users = append(users, *copyUser(user))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (r *MemoryMemberRepository) SetChild(ctx context.Context, parentID primitive.ObjectID, position string, childID *primitive.ObjectID) error {
	return r.update(parentID, func(u *models.User) {
		if position == models.PositionLeft {
			u.LeftChild = childID
		} else {
			u.RightChild = childID
		}
	})
}

func (r *MemoryMemberRepository) SetParent(ctx context.Context, childID primitive.ObjectID, parentID *primitive.ObjectID, position string) error {
	return r.update(childID, func(u *models.User) {
		u.ParentID = parentID
		if parentID != nil {
			u.Position = position
		} else {
			u.Position = ""
		}
	})
}

func (r *MemoryMemberRepository) IncrementWallet(ctx context.Context, id primitive.ObjectID, field string, amount float64) error {
	return r.update(id, func(u *models.User) {
		u.Wallet.Balance += amount
		u.Wallet.TotalEarnings += amount
		switch field {
		case models.WalletFieldSponsorBonus:
			u.Wallet.SponsorBonus += amount
		case models.WalletFieldCareerBonus:
			u.Wallet.CareerBonus += amount
		case models.WalletFieldPassiveIncome:
			u.Wallet.PassiveIncome += amount
		case models.WalletFieldLeadershipBonus:
			u.Wallet.LeadershipBonus += amount
		}
	})
}

func (r *MemoryMemberRepository) AdjustBalance(ctx context.Context, id primitive.ObjectID, amount float64) error {
	return r.update(id, func(u *models.User) {
		u.Wallet.Balance += amount
	})
}

func (r *MemoryMemberRepository) IncrementInvestment(ctx context.Context, id primitive.ObjectID, amount float64) error {
	return r.update(id, func(u *models.User) {
		u.TotalInvestment += amount
	})
}

func (r *MemoryMemberRepository) IncrementDirectReferrals(ctx context.Context, id primitive.ObjectID) error {
	return r.update(id, func(u *models.User) {
		u.DirectReferrals++
	})
}

func (r *MemoryMemberRepository) SetTeamSize(ctx context.Context, id primitive.ObjectID, size int) error {
	return r.update(id, func(u *models.User) {
		u.TotalTeamSize = size
	})
}

func (r *MemoryMemberRepository) SetCareerLevel(ctx context.Context, id primitive.ObjectID, levelID int) error {
	return r.update(id, func(u *models.User) {
		u.CareerLevelID = levelID
	})
}

func (r *MemoryMemberRepository) SetMembership(ctx context.Context, id primitive.ObjectID, membershipType string, expiresAt *time.Time) error {
	return r.update(id, func(u *models.User) {
		u.MembershipType = membershipType
		u.MembershipExpiresAt = expiresAt
		u.IsActive = true
	})
}

func (r *MemoryMemberRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	return r.update(id, func(u *models.User) {
		u.IsActive = active
	})
}

func (r *MemoryMemberRepository) SetBankDetails(ctx context.Context, id primitive.ObjectID, details *models.BankDetails) error {
	return r.update(id, func(u *models.User) {
		u.BankDetails = details
	})
}

func (r *MemoryMemberRepository) NextMemberSequence(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sequence++
	return r.sequence, nil
}

func (r *MemoryMemberRepository) update(id primitive.ObjectID, mutate func(*models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	mutate(user)
	user.UpdatedAt = time.Now()
	return nil
}

// MemoryLedgerRepository is the in-memory twin of MongoLedgerRepository
type MemoryLedgerRepository struct {
	mu            sync.RWMutex
	distributions []models.CommissionDistribution
	transactions  []models.Transaction
	withdrawals   []models.Withdrawal
	placementLogs []models.PlacementLog
	adminLogs     []models.AdminLog
}

// NewMemoryLedgerRepository creates an empty in-memory ledger
func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	return &MemoryLedgerRepository{}
}

func (r *MemoryLedgerRepository) InsertDistribution(ctx context.Context, dist *models.CommissionDistribution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.distributions {
		if existing.EventID == dist.EventID {
			return ErrDuplicateKey
		}
	}
	if dist.ID.IsZero() {
		dist.ID = primitive.NewObjectID()
	}
	dist.CreatedAt = time.Now()
	r.distributions = append(r.distributions, *dist)
	return nil
}

func (r *MemoryLedgerRepository) GetDistributionByEventID(ctx context.Context, eventID string) (*models.CommissionDistribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.distributions {
		if r.distributions[i].EventID == eventID {
			dist := r.distributions[i]
			return &dist, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryLedgerRepository) MarkDistributionCommitted(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.distributions {
		if r.distributions[i].ID == id {
			now := time.Now()
			r.distributions[i].Status = models.DistributionStatusCommitted
			r.distributions[i].CommittedAt = &now
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryLedgerRepository) DeleteDistribution(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.distributions {
		if r.distributions[i].ID == id {
			r.distributions = append(r.distributions[:i], r.distributions[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *MemoryLedgerRepository) ListDistributions(ctx context.Context, limit int64) ([]models.CommissionDistribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]models.CommissionDistribution, 0, len(r.distributions))
	for i := len(r.distributions) - 1; i >= 0 && int64(len(results)) < limit; i-- {
		results = append(results, r.distributions[i])
	}
	return results, nil
}

func (r *MemoryLedgerRepository) SumDistributions(ctx context.Context) (float64, float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total, systemFund float64
	for _, dist := range r.distributions {
		if dist.Status == models.DistributionStatusCommitted {
			total += dist.TotalAmount
			systemFund += dist.SystemFund
		}
	}
	return total, systemFund, nil
}

func (r *MemoryLedgerRepository) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	tx.CreatedAt = time.Now()
	r.transactions = append(r.transactions, *tx)
	return nil
}

func (r *MemoryLedgerRepository) ListTransactions(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []models.Transaction
	for i := len(r.transactions) - 1; i >= 0 && int64(len(results)) < limit; i-- {
		if r.transactions[i].UserID == userID {
			results = append(results, r.transactions[i])
		}
	}
	return results, nil
}

func (r *MemoryLedgerRepository) InsertWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w.ID.IsZero() {
		w.ID = primitive.NewObjectID()
	}
	w.CreatedAt = time.Now()
	r.withdrawals = append(r.withdrawals, *w)
	return nil
}

func (r *MemoryLedgerRepository) GetWithdrawal(ctx context.Context, id primitive.ObjectID) (*models.Withdrawal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.withdrawals {
		if r.withdrawals[i].ID == id {
			w := r.withdrawals[i]
			return &w, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryLedgerRepository) ListWithdrawals(ctx context.Context, status string, limit int64) ([]models.Withdrawal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []models.Withdrawal
	for i := len(r.withdrawals) - 1; i >= 0 && int64(len(results)) < limit; i-- {
		if status == "" || r.withdrawals[i].Status == status {
			results = append(results, r.withdrawals[i])
		}
	}
	return results, nil
}

func (r *MemoryLedgerRepository) SetWithdrawalStatus(ctx context.Context, id primitive.ObjectID, w *models.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.withdrawals {
		if r.withdrawals[i].ID == id {
			r.withdrawals[i].Status = w.Status
			r.withdrawals[i].ProcessedAt = w.ProcessedAt
			r.withdrawals[i].AdminID = w.AdminID
			r.withdrawals[i].AdminNote = w.AdminNote
			r.withdrawals[i].RejectionReason = w.RejectionReason
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryLedgerRepository) CountWithdrawals(ctx context.Context, status string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, w := range r.withdrawals {
		if w.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *MemoryLedgerRepository) InsertPlacementLog(ctx context.Context, entry *models.PlacementLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	entry.CreatedAt = time.Now()
	r.placementLogs = append(r.placementLogs, *entry)
	return nil
}

func (r *MemoryLedgerRepository) InsertAdminLog(ctx context.Context, entry *models.AdminLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	entry.CreatedAt = time.Now()
	r.adminLogs = append(r.adminLogs, *entry)
	return nil
}
