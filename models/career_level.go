// models/career_level.go
package models

// CareerLevel is one tier of the static seven-tier career table. Rates are
// percentages (2 means 2%). Bonus is a one-time credit on promotion.
type CareerLevel struct {
	ID                 int     `json:"id" bson:"id"`
	Name               string  `json:"name" bson:"name"`
	Description        string  `json:"description" bson:"description"`
	MinInvestment      float64 `json:"minInvestment" bson:"minInvestment"`
	MinDirectReferrals int     `json:"minDirectReferrals" bson:"minDirectReferrals"`
	CommissionRate     float64 `json:"commissionRate" bson:"commissionRate"`
	PassiveIncomeRate  float64 `json:"passiveIncomeRate" bson:"passiveIncomeRate"`
	Bonus              float64 `json:"bonus" bson:"bonus"`
}

// CareerLevels is the ordered tier table (Nefis Mertebeleri). Immutable at
// runtime; members reference tiers by ID.
var CareerLevels = []CareerLevel{
	{
		ID:                 1,
		Name:               "Nefs-i Emmare",
		Description:        "Giriş seviyesi",
		MinInvestment:      0,
		MinDirectReferrals: 0,
		CommissionRate:     2,
		PassiveIncomeRate:  0,
		Bonus:              0,
	},
	{
		ID:                 2,
		Name:               "Nefs-i Levvame",
		Description:        "2 direkt üye, $500 yatırım",
		MinInvestment:      500,
		MinDirectReferrals: 2,
		CommissionRate:     3,
		PassiveIncomeRate:  0.5,
		Bonus:              50,
	},
	{
		ID:                 3,
		Name:               "Nefs-i Mülhime",
		Description:        "4 aktif üye, $1500 yatırım",
		MinInvestment:      1500,
		MinDirectReferrals: 4,
		CommissionRate:     4,
		PassiveIncomeRate:  1,
		Bonus:              150,
	},
	{
		ID:                 4,
		Name:               "Nefs-i Mutmainne",
		Description:        "10 ekip üyesi, $3000 yatırım",
		MinInvestment:      3000,
		MinDirectReferrals: 10,
		CommissionRate:     5,
		PassiveIncomeRate:  1.5,
		Bonus:              300,
	},
	{
		ID:                 5,
		Name:               "Nefs-i Râziye",
		Description:        "2 lider, $5000 yatırım",
		MinInvestment:      5000,
		MinDirectReferrals: 2,
		CommissionRate:     6,
		PassiveIncomeRate:  2,
		Bonus:              500,
	},
	{
		ID:                 6,
		Name:               "Nefs-i Mardiyye",
		Description:        "50 toplam üye, $10000 yatırım",
		MinInvestment:      10000,
		MinDirectReferrals: 50,
		CommissionRate:     8,
		PassiveIncomeRate:  3,
		Bonus:              1000,
	},
	{
		ID:                 7,
		Name:               "Nefs-i Kâmile",
		Description:        "3 lider, $25000 yatırım",
		MinInvestment:      25000,
		MinDirectReferrals: 3,
		CommissionRate:     12,
		PassiveIncomeRate:  4,
		Bonus:              2500,
	},
}

// LevelByID returns the tier with the given ID, falling back to the entry tier
func LevelByID(id int) CareerLevel {
	for _, level := range CareerLevels {
		if level.ID == id {
			return level
		}
	}
	return CareerLevels[0]
}

// CareerLevelForStats returns the highest tier whose thresholds the given
// investment and direct-referral count both satisfy
func CareerLevelForStats(totalInvestment float64, directReferrals int) CareerLevel {
	level := CareerLevels[0]
	for _, candidate := range CareerLevels {
		if totalInvestment >= candidate.MinInvestment && directReferrals >= candidate.MinDirectReferrals {
			level = candidate
		}
	}
	return level
}
