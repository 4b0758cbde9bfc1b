// models/auth.go

package models

type SignupRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	FullName     string `json:"fullName" validate:"required"`
	Phone        string `json:"phone,omitempty"`
	ReferralCode string `json:"referralCode,omitempty"`
	// Optional explicit placement for admin-created members; registration
	// flow leaves these empty and lets the balanced strategy decide.
	Strategy string `json:"strategy,omitempty"`
}

type LoginRequest struct {
	Email      string `json:"email,omitempty"`
	MemberID   string `json:"memberId,omitempty"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

type LoginResponse struct {
	Token         string `json:"token"`
	RefreshToken  string `json:"refreshToken"`
	RememberToken string `json:"rememberToken,omitempty"`
	User          User   `json:"user"`
}

// MembershipPackage is one purchasable activation package
type MembershipPackage struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Duration int     `json:"duration"` // days, 0 means one-time entry
	Type     string  `json:"type"`
	Discount float64 `json:"discount,omitempty"` // percent
}

// MembershipPackages mirrors the platform's fixed package catalog
var MembershipPackages = []MembershipPackage{
	{ID: "entry", Name: "Giriş Paketi", Price: 100, Duration: 0, Type: MembershipEntry},
	{ID: "monthly", Name: "Aylık Aktiflik", Price: 20, Duration: 30, Type: MembershipMonthly},
	{ID: "yearly", Name: "Yıllık Plan", Price: 200, Duration: 365, Type: MembershipYearly, Discount: 15},
}

// PackageByType returns the package for a membership type
func PackageByType(membershipType string) (MembershipPackage, bool) {
	for _, pkg := range MembershipPackages {
		if pkg.Type == membershipType {
			return pkg, true
		}
	}
	return MembershipPackage{}, false
}

// PaymentConfirmation activates a membership after the gateway confirms payment
type PaymentConfirmation struct {
	PaymentID      string  `json:"paymentId" validate:"required"`
	MembershipType string  `json:"membershipType" validate:"required,oneof=entry monthly yearly"`
	Amount         float64 `json:"amount" validate:"required,gt=0"`
}
