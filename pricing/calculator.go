package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// input ceilings; anything larger is clamped
const (
	MaxUsers              = 1_000_000
	MaxQueriesPerDay      = 10_000
	MaxPortsConnected     = 1_000
	MaxGhostPassScans     = 10_000_000
	MaxVerificationChecks = 10_000_000
)

type Verification struct {
	Enabled  bool  `json:"enabled"`
	Basic    int64 `json:"basic"`
	Standard int64 `json:"standard"`
	Deep     int64 `json:"deep"`
}

type Input struct {
	Users          int64        `json:"users"`
	QueriesPerDay  int64        `json:"queries_per_day"`
	Risk           Risk         `json:"risk"`
	PortsConnected int64        `json:"ports_connected"`
	GhostPassScans int64        `json:"ghost_pass_scans"`
	Verification   Verification `json:"verification"`
	TierOverride   string       `json:"tier_override"`
}

type Overage struct {
	Included int64           `json:"included"`
	Used     int64           `json:"used"`
	Over     int64           `json:"over"`
	Rate     decimal.Decimal `json:"rate"`
	Cost     decimal.Decimal `json:"cost"`
}

type Quote struct {
	// Input after clamping; documents echo this, not the raw request.
	Input Input `json:"input"`

	MonthlyQueries int64  `json:"monthly_queries"`
	Tier           string `json:"tier"`
	TierLabel      string `json:"tier_label"`
	Overridden     bool   `json:"overridden"`

	Anchor           decimal.Decimal `json:"anchor"`
	Queries          Overage         `json:"queries"`
	Scans            Overage         `json:"scans"`
	Ports            Overage         `json:"ports"`
	OverageTotal     decimal.Decimal `json:"overage_total"`
	VerificationCost decimal.Decimal `json:"verification_cost"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	RiskMultiplier   decimal.Decimal `json:"risk_multiplier"`
	TotalMonthly     decimal.Decimal `json:"total_monthly"`

	BandLow            decimal.Decimal `json:"band_low"`
	BandHigh           decimal.Decimal `json:"band_high"`
	UtilizationPercent decimal.Decimal `json:"utilization_percent"`
	UpgradeSuggested   bool            `json:"upgrade_suggested"`
	SuggestedTier      string          `json:"suggested_tier,omitempty"`
	CompetitorBaseline decimal.Decimal `json:"competitor_baseline"`
	SavingsPercent     decimal.Decimal `json:"savings_percent"`
}

// Calculate prices in with the embedded catalog.
func Calculate(in Input) Quote {
	return DefaultCatalog().Calculate(in)
}

// Calculate is pure: same input, same quote. Bad numbers are clamped, an
// unknown risk level prices as low and an unknown tier override is ignored.
func (c *Catalog) Calculate(in Input) Quote {
	in = c.clamp(in)

	q := Quote{Input: in}
	q.MonthlyQueries = in.Users * in.QueriesPerDay * c.WorkingDays

	tier := c.SelectTier(q.MonthlyQueries)
	if in.TierOverride != "" {
		if t, ok := c.TierByName(in.TierOverride); ok {
			tier = t
			q.Overridden = true
		}
	}
	q.Tier = tier.Name
	q.TierLabel = tier.Label
	q.Anchor = tier.Anchor

	q.Queries = overage(q.MonthlyQueries, tier.IncludedQueries, tier.QueryRate)
	q.Scans = overage(in.GhostPassScans, tier.IncludedScans, tier.ScanRate)
	q.Ports = overage(in.PortsConnected, tier.IncludedPorts, tier.PortRate)
	q.OverageTotal = q.Queries.Cost.Add(q.Scans.Cost).Add(q.Ports.Cost)

	q.VerificationCost = decimal.Zero
	if in.Verification.Enabled {
		q.VerificationCost = c.VerificationBasic.Mul(decimal.NewFromInt(in.Verification.Basic)).
			Add(c.VerificationStandard.Mul(decimal.NewFromInt(in.Verification.Standard))).
			Add(c.VerificationDeep.Mul(decimal.NewFromInt(in.Verification.Deep)))
	}

	q.Subtotal = q.Anchor.Add(q.OverageTotal).Add(q.VerificationCost)
	q.RiskMultiplier = c.RiskMultipliers[in.Risk]
	q.TotalMonthly = q.Subtotal.Mul(q.RiskMultiplier)

	one := decimal.NewFromInt(1)
	q.BandLow = q.TotalMonthly.Mul(one.Sub(c.NegotiationBand))
	q.BandHigh = q.TotalMonthly.Mul(one.Add(c.NegotiationBand))

	hundred := decimal.NewFromInt(100)
	q.UtilizationPercent = decimal.Zero
	if tier.IncludedQueries != Unlimited && tier.IncludedQueries > 0 {
		q.UtilizationPercent = decimal.NewFromInt(q.MonthlyQueries).
			Div(decimal.NewFromInt(tier.IncludedQueries)).
			Mul(hundred).
			Round(2)
	}

	q.UpgradeSuggested = q.OverageTotal.GreaterThan(q.Anchor.Mul(c.UpgradeOverageRatio))
	if q.UpgradeSuggested {
		if next, ok := c.nextTier(tier.Name); ok {
			q.SuggestedTier = next.Name
		}
	}

	q.CompetitorBaseline = decimal.NewFromInt(q.MonthlyQueries).Mul(c.CompetitorRate)
	q.SavingsPercent = decimal.Zero
	if q.CompetitorBaseline.IsPositive() {
		savings := q.CompetitorBaseline.Sub(q.TotalMonthly).
			Div(q.CompetitorBaseline).
			Mul(hundred).
			Round(2)
		if savings.IsPositive() {
			q.SavingsPercent = savings
		}
	}
	return q
}

func overage(used, included int64, rate decimal.Decimal) Overage {
	o := Overage{Included: included, Used: used, Rate: rate, Cost: decimal.Zero}
	if included == Unlimited {
		return o
	}
	if used > included {
		o.Over = used - included
		o.Cost = rate.Mul(decimal.NewFromInt(o.Over))
	}
	return o
}

func (c *Catalog) clamp(in Input) Input {
	in.Users = clampInt(in.Users, 1, MaxUsers)
	in.QueriesPerDay = clampInt(in.QueriesPerDay, 0, MaxQueriesPerDay)
	in.PortsConnected = clampInt(in.PortsConnected, 0, MaxPortsConnected)
	in.GhostPassScans = clampInt(in.GhostPassScans, 0, MaxGhostPassScans)
	in.Verification.Basic = clampInt(in.Verification.Basic, 0, MaxVerificationChecks)
	in.Verification.Standard = clampInt(in.Verification.Standard, 0, MaxVerificationChecks)
	in.Verification.Deep = clampInt(in.Verification.Deep, 0, MaxVerificationChecks)

	in.Risk = Risk(strings.ToLower(strings.TrimSpace(string(in.Risk))))
	if _, ok := c.RiskMultipliers[in.Risk]; !ok {
		in.Risk = RiskLow
	}
	in.TierOverride = strings.ToLower(strings.TrimSpace(in.TierOverride))
	if _, ok := c.TierByName(in.TierOverride); !ok {
		in.TierOverride = ""
	}
	return in
}

func clampInt(v, lo, hi int64) int64 {
	return max(lo, min(v, hi))
}
