// services/career_service.go
package services

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kutbulzaman/mlm_backend/models"
	"github.com/kutbulzaman/mlm_backend/repositories"
)

// CareerService promotes members along the seven-tier table when their
// cumulative investment and direct referral count clear a tier's thresholds.
type CareerService struct {
	repo   repositories.MemberRepository
	ledger repositories.LedgerRepository
}

// NewCareerService wires the promotion checker
func NewCareerService(repo repositories.MemberRepository, ledger repositories.LedgerRepository) *CareerService {
	return &CareerService{repo: repo, ledger: ledger}
}

// EvaluatePromotion recomputes the member's tier from current stats. A
// promotion stores the new tier and credits the achieved tier's one-time
// bonus to the leadership wallet. Demotion never happens here; tiers only
// move up.
func (s *CareerService) EvaluatePromotion(ctx context.Context, memberID primitive.ObjectID) (*models.CareerLevel, bool, error) {
	member, err := s.repo.GetByID(ctx, memberID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, false, ErrNodeNotFound
		}
		return nil, false, err
	}

	level := models.CareerLevelForStats(member.TotalInvestment, member.DirectReferrals)
	if level.ID <= member.CareerLevelID {
		current := models.LevelByID(member.CareerLevelID)
		return &current, false, nil
	}

	if err := s.repo.SetCareerLevel(ctx, memberID, level.ID); err != nil {
		return nil, false, err
	}

	if level.Bonus > 0 {
		if err := s.repo.IncrementWallet(ctx, memberID, models.WalletFieldLeadershipBonus, level.Bonus); err != nil {
			log.Printf("Failed to credit promotion bonus for %s: %v", memberID.Hex(), err)
		} else {
			tx := &models.Transaction{
				UserID:      memberID,
				Type:        models.TransactionBonus,
				Amount:      level.Bonus,
				Description: fmt.Sprintf("Promotion bonus: %s", level.Name),
			}
			if err := s.ledger.AppendTransaction(ctx, tx); err != nil {
				log.Printf("Failed to append promotion ledger entry for %s: %v", memberID.Hex(), err)
			}
		}
	}

	log.Printf("Member %s promoted to %s", member.MemberID, level.Name)
	return &level, true, nil
}
