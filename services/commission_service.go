// services/commission_service.go
package services

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kutbulzaman/mlm_backend/config"
	"github.com/kutbulzaman/mlm_backend/models"
	"github.com/kutbulzaman/mlm_backend/repositories"
	"github.com/kutbulzaman/mlm_backend/utils"
)

// CommissionService splits qualifying payment events and credits the correct
// ancestors at most once per event.
type CommissionService struct {
	repo     repositories.MemberRepository
	ledger   repositories.LedgerRepository
	locks    *TreeLocker
	rates    config.CommissionRates
	maxDepth int
}

// NewCommissionService wires the distribution engine
func NewCommissionService(repo repositories.MemberRepository, ledger repositories.LedgerRepository, locks *TreeLocker, rates config.CommissionRates, maxDepth int) *CommissionService {
	return &CommissionService{
		repo:     repo,
		ledger:   ledger,
		locks:    locks,
		rates:    rates,
		maxDepth: maxDepth,
	}
}

type ancestor struct {
	member *models.User
	level  int
}

// Distribute splits event.Amount into sponsor/career/passive/system shares
// and credits each recipient's wallet exactly once. Retrying the same event
// id fails with ErrDuplicateEvent and changes nothing; a partial failure
// rolls back every credit already applied.
func (s *CommissionService) Distribute(ctx context.Context, event models.CommissionEvent) (*models.CommissionDistribution, error) {
	if event.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	source, err := s.repo.GetByID(ctx, event.SourceMemberID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, ErrSourceMemberNotFound
		}
		return nil, err
	}

	if _, err := s.ledger.GetDistributionByEventID(ctx, event.EventID); err == nil {
		return nil, ErrDuplicateEvent
	} else if err != repositories.ErrNotFound {
		return nil, err
	}

	rootID, err := rootOf(ctx, s.repo, source.ID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(rootID)
	defer unlock()

	dist, err := s.buildDistribution(ctx, source, event)
	if err != nil {
		return nil, err
	}

	// The pending record goes in first; its unique event-id index is what
	// makes a concurrent retry lose instead of double-crediting.
	if err := s.ledger.InsertDistribution(ctx, dist); err != nil {
		if err == repositories.ErrDuplicateKey {
			return nil, ErrDuplicateEvent
		}
		return nil, err
	}

	if err := s.applyCredits(ctx, dist); err != nil {
		if delErr := s.ledger.DeleteDistribution(ctx, dist.ID); delErr != nil {
			log.Printf("Failed to delete rolled-back distribution %s: %v", dist.EventID, delErr)
		}
		return nil, err
	}

	if err := s.ledger.MarkDistributionCommitted(ctx, dist.ID); err != nil {
		log.Printf("Failed to mark distribution %s committed: %v", dist.EventID, err)
	}
	dist.Status = models.DistributionStatusCommitted

	log.Printf("Distributed event %s: $%.2f across %d recipients, $%.2f to system fund",
		dist.EventID, dist.TotalAmount, len(dist.Recipients), dist.SystemFund)

	return dist, nil
}

// buildDistribution computes the full recipient plan without touching any
// wallet. The career pool pays each ancestor their own level's commission
// rate; the passive share pays each ancestor their passive rate applied to
// the event amount. Whatever neither walk claims stays in the system fund.
func (s *CommissionService) buildDistribution(ctx context.Context, source *models.User, event models.CommissionEvent) (*models.CommissionDistribution, error) {
	amount := event.Amount
	sponsorShare := utils.Round2(amount * s.rates.Sponsor / 100)
	careerPool := utils.Round2(amount * s.rates.Career / 100)
	passivePool := utils.Round2(amount * s.rates.Passive / 100)

	ancestors, err := s.ancestors(ctx, source)
	if err != nil {
		return nil, err
	}

	var recipients []models.CommissionRecipient
	var credited float64

	if source.SponsorID != nil {
		recipients = append(recipients, models.CommissionRecipient{
			MemberID: *source.SponsorID,
			Role:     models.RecipientRoleSponsor,
			Amount:   sponsorShare,
			Level:    1,
		})
		credited += sponsorShare
	}

	remaining := careerPool
	for _, a := range ancestors {
		if remaining <= 0 {
			break
		}
		level := models.LevelByID(a.member.CareerLevelID)
		share := utils.Round2(careerPool * level.CommissionRate / 100)
		if share > remaining {
			share = utils.Round2(remaining)
		}
		if share <= 0 {
			continue
		}
		recipients = append(recipients, models.CommissionRecipient{
			MemberID: a.member.ID,
			Role:     models.RecipientRoleCareer,
			Amount:   share,
			Level:    a.level,
		})
		credited += share
		remaining = utils.Round2(remaining - share)
	}

	remainingPassive := passivePool
	for _, a := range ancestors {
		if remainingPassive <= 0 {
			break
		}
		level := models.LevelByID(a.member.CareerLevelID)
		share := utils.Round2(amount * level.PassiveIncomeRate / 100)
		if share > remainingPassive {
			share = utils.Round2(remainingPassive)
		}
		if share <= 0 {
			continue
		}
		recipients = append(recipients, models.CommissionRecipient{
			MemberID: a.member.ID,
			Role:     models.RecipientRolePassive,
			Amount:   share,
			Level:    a.level,
		})
		credited += share
		remainingPassive = utils.Round2(remainingPassive - share)
	}

	// The system fund absorbs the base 60%, any unclaimed career/passive
	// remainder, and rounding residue, keeping the conservation law exact.
	systemFund := utils.Round2(amount - credited)

	return &models.CommissionDistribution{
		EventID:        event.EventID,
		SourceMemberID: source.ID,
		EventType:      event.EventType,
		TotalAmount:    amount,
		SponsorBonus:   sponsorShare,
		CareerBonus:    careerPool,
		PassiveIncome:  passivePool,
		SystemFund:     systemFund,
		Recipients:     recipients,
		Status:         models.DistributionStatusPending,
	}, nil
}

// ancestors collects the parent chain of the source, nearest first, up to
// the configured depth. Visited tracking turns a corrupted chain into
// ErrCycleDetected instead of an endless walk.
func (s *CommissionService) ancestors(ctx context.Context, source *models.User) ([]ancestor, error) {
	var chain []ancestor
	visited := map[primitive.ObjectID]bool{source.ID: true}
	current := source

	for level := 1; level <= s.maxDepth; level++ {
		if current.ParentID == nil {
			break
		}
		parentID := *current.ParentID
		if visited[parentID] {
			return nil, ErrCycleDetected
		}
		visited[parentID] = true

		parent, err := s.repo.GetByID(ctx, parentID)
		if err != nil {
			if err == repositories.ErrNotFound {
				break
			}
			return nil, err
		}
		chain = append(chain, ancestor{member: parent, level: level})
		current = parent
	}
	return chain, nil
}

// applyCredits performs one atomic wallet increment per recipient. On any
// failure every credit applied so far is reversed before returning.
func (s *CommissionService) applyCredits(ctx context.Context, dist *models.CommissionDistribution) error {
	fieldForRole := map[string]string{
		models.RecipientRoleSponsor: models.WalletFieldSponsorBonus,
		models.RecipientRoleCareer:  models.WalletFieldCareerBonus,
		models.RecipientRolePassive: models.WalletFieldPassiveIncome,
	}

	applied := make([]models.CommissionRecipient, 0, len(dist.Recipients))
	for _, recipient := range dist.Recipients {
		field := fieldForRole[recipient.Role]
		if err := s.repo.IncrementWallet(ctx, recipient.MemberID, field, recipient.Amount); err != nil {
			s.rollback(ctx, applied, fieldForRole)
			return fmt.Errorf("crediting %s failed: %w", recipient.MemberID.Hex(), err)
		}
		applied = append(applied, recipient)

		tx := &models.Transaction{
			UserID:      recipient.MemberID,
			Type:        models.TransactionCommission,
			Amount:      recipient.Amount,
			Description: fmt.Sprintf("%s commission, level %d", recipient.Role, recipient.Level),
			ReferenceID: dist.EventID,
		}
		if err := s.ledger.AppendTransaction(ctx, tx); err != nil {
			log.Printf("Failed to append ledger entry for %s: %v", recipient.MemberID.Hex(), err)
		}
	}
	return nil
}

func (s *CommissionService) rollback(ctx context.Context, applied []models.CommissionRecipient, fieldForRole map[string]string) {
	for _, recipient := range applied {
		if err := s.repo.IncrementWallet(ctx, recipient.MemberID, fieldForRole[recipient.Role], -recipient.Amount); err != nil {
			log.Printf("Rollback failed for %s, amount %.2f: %v", recipient.MemberID.Hex(), recipient.Amount, err)
		}
	}
}
