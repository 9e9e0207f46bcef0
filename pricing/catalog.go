// Package pricing computes VALID subscription quotes and renders the
// documents sales sends out (proposal, order form, spreadsheet).
package pricing

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Unlimited marks an included cap with no overage.
const Unlimited = -1

//go:embed tiers.yaml
var defaultCatalogYAML []byte

type Tier struct {
	Name            string
	Label           string
	Anchor          decimal.Decimal
	IncludedQueries int64
	IncludedScans   int64
	IncludedPorts   int64
	QueryRate       decimal.Decimal
	ScanRate        decimal.Decimal
	PortRate        decimal.Decimal
}

type Catalog struct {
	Tiers                []Tier
	VerificationBasic    decimal.Decimal
	VerificationStandard decimal.Decimal
	VerificationDeep     decimal.Decimal
	RiskMultipliers      map[Risk]decimal.Decimal
	WorkingDays          int64
	CompetitorRate       decimal.Decimal
	NegotiationBand      decimal.Decimal
	UpgradeOverageRatio  decimal.Decimal
}

type tierYAML struct {
	Name            string `yaml:"name"`
	Label           string `yaml:"label"`
	Anchor          string `yaml:"anchor"`
	IncludedQueries int64  `yaml:"included_queries"`
	IncludedScans   int64  `yaml:"included_scans"`
	IncludedPorts   int64  `yaml:"included_ports"`
	QueryRate       string `yaml:"query_rate"`
	ScanRate        string `yaml:"scan_rate"`
	PortRate        string `yaml:"port_rate"`
}

type catalogYAML struct {
	Tiers        []tierYAML `yaml:"tiers"`
	Verification struct {
		Basic    string `yaml:"basic"`
		Standard string `yaml:"standard"`
		Deep     string `yaml:"deep"`
	} `yaml:"verification"`
	RiskMultipliers     map[string]string `yaml:"risk_multipliers"`
	WorkingDays         int64             `yaml:"working_days_per_month"`
	CompetitorRate      string            `yaml:"competitor_rate_per_action"`
	NegotiationBand     string            `yaml:"negotiation_band"`
	UpgradeOverageRatio string            `yaml:"upgrade_overage_ratio"`
}

var defaultCatalog = mustLoadCatalog(defaultCatalogYAML)

// DefaultCatalog is the embedded tier table.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

func mustLoadCatalog(b []byte) *Catalog {
	c, err := LoadCatalog(b)
	if err != nil {
		panic("pricing: embedded catalog: " + err.Error())
	}
	return c
}

// LoadCatalog parses and validates a tier table.
func LoadCatalog(b []byte) (*Catalog, error) {
	var raw catalogYAML
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, err
	}

	var perr error
	dec := func(field, s string) decimal.Decimal {
		d, err := decimal.NewFromString(s)
		if err != nil && perr == nil {
			perr = fmt.Errorf("%s: %w", field, err)
		}
		return d
	}

	c := &Catalog{
		VerificationBasic:    dec("verification.basic", raw.Verification.Basic),
		VerificationStandard: dec("verification.standard", raw.Verification.Standard),
		VerificationDeep:     dec("verification.deep", raw.Verification.Deep),
		RiskMultipliers:      map[Risk]decimal.Decimal{},
		WorkingDays:          raw.WorkingDays,
		CompetitorRate:       dec("competitor_rate_per_action", raw.CompetitorRate),
		NegotiationBand:      dec("negotiation_band", raw.NegotiationBand),
		UpgradeOverageRatio:  dec("upgrade_overage_ratio", raw.UpgradeOverageRatio),
	}
	for k, v := range raw.RiskMultipliers {
		c.RiskMultipliers[Risk(k)] = dec("risk_multipliers."+k, v)
	}
	for _, t := range raw.Tiers {
		c.Tiers = append(c.Tiers, Tier{
			Name:            t.Name,
			Label:           t.Label,
			Anchor:          dec(t.Name+".anchor", t.Anchor),
			IncludedQueries: t.IncludedQueries,
			IncludedScans:   t.IncludedScans,
			IncludedPorts:   t.IncludedPorts,
			QueryRate:       dec(t.Name+".query_rate", t.QueryRate),
			ScanRate:        dec(t.Name+".scan_rate", t.ScanRate),
			PortRate:        dec(t.Name+".port_rate", t.PortRate),
		})
	}
	if perr != nil {
		return nil, perr
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	if len(c.Tiers) == 0 {
		return errors.New("no tiers")
	}
	if c.WorkingDays <= 0 {
		return errors.New("working_days_per_month must be positive")
	}
	if _, ok := c.RiskMultipliers[RiskLow]; !ok {
		return errors.New("risk multiplier for low is required")
	}
	seen := map[string]bool{}
	var prevCap int64
	var prevAnchor decimal.Decimal
	for i, t := range c.Tiers {
		if t.Name == "" || seen[t.Name] {
			return fmt.Errorf("tier %d: missing or duplicate name", i)
		}
		seen[t.Name] = true
		if t.IncludedQueries == Unlimited && i != len(c.Tiers)-1 {
			return fmt.Errorf("tier %s: only the last tier may be unlimited", t.Name)
		}
		if t.IncludedQueries != Unlimited {
			if t.IncludedQueries <= prevCap {
				return fmt.Errorf("tier %s: included queries must ascend", t.Name)
			}
			prevCap = t.IncludedQueries
		}
		if i > 0 && t.Anchor.LessThanOrEqual(prevAnchor) {
			return fmt.Errorf("tier %s: anchor must ascend", t.Name)
		}
		prevAnchor = t.Anchor
		if t.Anchor.IsNegative() || t.QueryRate.IsNegative() || t.ScanRate.IsNegative() || t.PortRate.IsNegative() {
			return fmt.Errorf("tier %s: negative price", t.Name)
		}
	}
	return nil
}

// TierByName returns the named tier, or false.
func (c *Catalog) TierByName(name string) (Tier, bool) {
	for _, t := range c.Tiers {
		if t.Name == name {
			return t, true
		}
	}
	return Tier{}, false
}

// SelectTier returns the cheapest tier whose query cap covers volume; the last
// tier when none does.
func (c *Catalog) SelectTier(volume int64) Tier {
	for _, t := range c.Tiers {
		if t.IncludedQueries == Unlimited || t.IncludedQueries >= volume {
			return t
		}
	}
	return c.Tiers[len(c.Tiers)-1]
}

func (c *Catalog) nextTier(name string) (Tier, bool) {
	for i, t := range c.Tiers {
		if t.Name == name && i+1 < len(c.Tiers) {
			return c.Tiers[i+1], true
		}
	}
	return Tier{}, false
}
