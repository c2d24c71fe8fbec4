package subscription

import (
	"errors"
	"fmt"
)

// Plan identifies a subscription tier and billing interval.
type Plan string

const (
	PlanBasicMonthly   Plan = "basic_monthly"
	PlanBasicYearly    Plan = "basic_yearly"
	PlanPremiumMonthly Plan = "premium_monthly"
	PlanPremiumYearly  Plan = "premium_yearly"
)

// Device limits per tier. The limit is a property of the tier, not the
// billing interval.
const (
	basicDeviceLimit   = 1
	premiumDeviceLimit = 5
)

// PlanSpec binds a plan to the provider's price reference and the device
// quota it grants.
type PlanSpec struct {
	PriceRef    string
	DeviceLimit int
}

// Catalog is the static plan lookup table, validated once at startup so no
// runtime plan resolution can fail on configuration gaps.
type Catalog map[Plan]PlanSpec

// PlanConfig carries the provider price references for each plan.
type PlanConfig struct {
	BasicMonthlyPriceRef   string `env:"PADDLE_PRICE_BASIC_MONTHLY,required"`
	BasicYearlyPriceRef    string `env:"PADDLE_PRICE_BASIC_YEARLY,required"`
	PremiumMonthlyPriceRef string `env:"PADDLE_PRICE_PREMIUM_MONTHLY,required"`
	PremiumYearlyPriceRef  string `env:"PADDLE_PRICE_PREMIUM_YEARLY,required"`
}

// NewCatalog builds and validates the plan catalog from configuration.
func NewCatalog(cfg PlanConfig) (Catalog, error) {
	catalog := Catalog{
		PlanBasicMonthly:   {PriceRef: cfg.BasicMonthlyPriceRef, DeviceLimit: basicDeviceLimit},
		PlanBasicYearly:    {PriceRef: cfg.BasicYearlyPriceRef, DeviceLimit: basicDeviceLimit},
		PlanPremiumMonthly: {PriceRef: cfg.PremiumMonthlyPriceRef, DeviceLimit: premiumDeviceLimit},
		PlanPremiumYearly:  {PriceRef: cfg.PremiumYearlyPriceRef, DeviceLimit: premiumDeviceLimit},
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Validate checks the catalog covers every recognized plan with a price
// reference and a positive device limit, and that price references are
// unique so webhook price lookups are unambiguous.
func (c Catalog) Validate() error {
	seen := make(map[string]Plan, len(c))
	for _, plan := range []Plan{PlanBasicMonthly, PlanBasicYearly, PlanPremiumMonthly, PlanPremiumYearly} {
		spec, ok := c[plan]
		if !ok {
			return errors.Join(ErrInvalidCatalog, fmt.Errorf("plan %s missing", plan))
		}
		if spec.PriceRef == "" {
			return errors.Join(ErrInvalidCatalog, fmt.Errorf("plan %s has no price reference", plan))
		}
		if spec.DeviceLimit <= 0 {
			return errors.Join(ErrInvalidCatalog, fmt.Errorf("plan %s has non-positive device limit", plan))
		}
		if other, dup := seen[spec.PriceRef]; dup {
			return errors.Join(ErrInvalidCatalog, fmt.Errorf("plans %s and %s share price reference %s", other, plan, spec.PriceRef))
		}
		seen[spec.PriceRef] = plan
	}
	return nil
}

// Spec returns the catalog entry for the plan, or ErrUnknownPlan.
func (c Catalog) Spec(plan Plan) (PlanSpec, error) {
	spec, ok := c[plan]
	if !ok {
		return PlanSpec{}, ErrUnknownPlan
	}
	return spec, nil
}

// PlanByPriceRef resolves the plan behind a provider price reference.
func (c Catalog) PlanByPriceRef(priceRef string) (Plan, bool) {
	for plan, spec := range c {
		if spec.PriceRef == priceRef {
			return plan, true
		}
	}
	return "", false
}
