package domain

import "time"

// ShopPlan enumerates billing plans managed through Shopify app pricing.
type ShopPlan string

const (
	ShopPlanFree    ShopPlan = "free"
	ShopPlanStarter ShopPlan = "starter"
	ShopPlanPro     ShopPlan = "pro"
)

// Shop represents an installed merchant store.
type Shop struct {
	Domain        string
	AccessToken   string
	Plan          ShopPlan
	CreditBalance int
	Active        bool
	InstalledAt   time.Time
	UpdatedAt     time.Time
}

// IsFree reports whether the shop is on the free plan.
func (s Shop) IsFree() bool {
	return s.Plan == ShopPlanFree
}

// CreditSnapshot is attached to entitlement failures so the caller can
// present an upgrade path.
type CreditSnapshot struct {
	Balance int      `json:"creditBalance"`
	Plan    ShopPlan `json:"plan"`
}
