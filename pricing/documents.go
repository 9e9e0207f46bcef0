package pricing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/validtech/valid_backend/utils"
)

// Customer is who the document is addressed to.
type Customer struct {
	Name       string `json:"name"`
	Company    string `json:"company"`
	Email      string `json:"email"`
	PreparedBy string `json:"prepared_by"`
}

type documentData struct {
	Q        Quote
	C        Customer
	Issued   string
	ValidTil string
	Money    func(decimal.Decimal) string
	Percent  func(decimal.Decimal) string
	Count    func(int64) string
}

const proposalTemplate = `VALID(TM) PRICING PROPOSAL
==========================

Prepared for: {{.C.Name}}{{if .C.Company}}, {{.C.Company}}{{end}}
{{- if .C.Email}}
Email:        {{.C.Email}}{{end}}
{{- if .C.PreparedBy}}
Prepared by:  {{.C.PreparedBy}}{{end}}
Issued:       {{.Issued}}
Valid until:  {{.ValidTil}}

USAGE PROFILE
-------------
Users governed:          {{call .Count .Q.Input.Users}}
Queries per user/day:    {{call .Count .Q.Input.QueriesPerDay}}
Monthly query volume:    {{call .Count .Q.MonthlyQueries}}
Ghost Pass scans/month:  {{call .Count .Q.Input.GhostPassScans}}
Ports connected:         {{call .Count .Q.Input.PortsConnected}}
Risk level:              {{.Q.Input.Risk}}

RECOMMENDED PLAN: {{.Q.TierLabel}}{{if .Q.Overridden}} (selected manually){{end}}
-----------------
Platform anchor:         {{call .Money .Q.Anchor}}
Query overage:           {{call .Money .Q.Queries.Cost}}
Scan overage:            {{call .Money .Q.Scans.Cost}}
Port overage:            {{call .Money .Q.Ports.Cost}}
Verification checks:     {{call .Money .Q.VerificationCost}}
Subtotal:                {{call .Money .Q.Subtotal}}
Risk multiplier:         x{{.Q.RiskMultiplier.StringFixed 1}}

TOTAL MONTHLY:           {{call .Money .Q.TotalMonthly}}
Negotiation range:       {{call .Money .Q.BandLow}} - {{call .Money .Q.BandHigh}}
Plan utilization:        {{call .Percent .Q.UtilizationPercent}}
{{- if .Q.UpgradeSuggested}}
Note: overage exceeds 40% of the plan anchor.{{if .Q.SuggestedTier}} Consider the {{.Q.SuggestedTier}} tier.{{end}}
{{- end}}

COMPARED TO PER-ACTION VENDORS
------------------------------
Typical per-action cost: {{call .Money .Q.CompetitorBaseline}}
Your savings:            {{call .Percent .Q.SavingsPercent}}
`

const orderFormTemplate = `VALID(TM) ORDER FORM
====================

Customer:      {{.C.Name}}
Company:       {{.C.Company}}
Email:         {{.C.Email}}
Order date:    {{.Issued}}

Plan:          {{.Q.TierLabel}} ({{.Q.Tier}})
Billing:       Monthly, in advance

LINE ITEMS
----------
1. Platform subscription ({{.Q.TierLabel}})            {{call .Money .Q.Anchor}}
2. Query overage ({{call .Count .Q.Queries.Over}} @ {{call .Money .Q.Queries.Rate}})   {{call .Money .Q.Queries.Cost}}
3. Ghost Pass scan overage ({{call .Count .Q.Scans.Over}} @ {{call .Money .Q.Scans.Rate}})   {{call .Money .Q.Scans.Cost}}
4. Additional ports ({{call .Count .Q.Ports.Over}} @ {{call .Money .Q.Ports.Rate}})   {{call .Money .Q.Ports.Cost}}
5. Verification checks                                {{call .Money .Q.VerificationCost}}
   Risk adjustment                                    x{{.Q.RiskMultiplier.StringFixed 1}}

MONTHLY TOTAL: {{call .Money .Q.TotalMonthly}}

Customer signature: ______________________   Date: __________
VALID signature:    ______________________   Date: __________
`

// proposals are honored for 30 days
const proposalValidity = 30 * 24 * time.Hour

func RenderProposal(q Quote, c Customer, issued time.Time) ([]byte, error) {
	return render(proposalTemplate, q, c, issued)
}

func RenderOrderForm(q Quote, c Customer, issued time.Time) ([]byte, error) {
	return render(orderFormTemplate, q, c, issued)
}

func render(tpl string, q Quote, c Customer, issued time.Time) ([]byte, error) {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = "Prospective customer"
	}
	out, err := utils.ExecTemplate(tpl, documentData{
		Q:        q,
		C:        c,
		Issued:   issued.UTC().Format("January 2, 2006"),
		ValidTil: issued.UTC().Add(proposalValidity).Format("January 2, 2006"),
		Money:    FormatMoney,
		Percent:  func(d decimal.Decimal) string { return d.StringFixed(1) + "%" },
		Count:    formatCount,
	})
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// FormatMoney renders $1,234.50.
func FormatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")
	out := "$" + groupThousands(whole) + "." + frac
	if d.IsNegative() {
		return "-" + out
	}
	return out
}

func formatCount(n int64) string {
	if n == Unlimited {
		return "unlimited"
	}
	return groupThousands(decimal.NewFromInt(n).String())
}

func groupThousands(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
