package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/validtech/valid_backend/pricing"
)

type quoteOptions struct {
	input    pricing.Input
	customer pricing.Customer
	format   string
	output   string
}

func newQuoteCmd() *cobra.Command {
	var opts quoteOptions
	var risk string
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a deployment offline and optionally render the proposal, order form or spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.input.Risk = pricing.Risk(strings.ToLower(risk))
			return runQuote(cmd.OutOrStdout(), opts, time.Now().UTC())
		},
	}
	f := cmd.Flags()
	f.Int64Var(&opts.input.Users, "users", 10, "Active users")
	f.Int64Var(&opts.input.QueriesPerDay, "queries-per-day", 10, "Queries per user per day")
	f.StringVar(&risk, "risk", string(pricing.RiskLow), "Risk level: low, medium or high")
	f.Int64Var(&opts.input.PortsConnected, "ports", 0, "Connected ports")
	f.Int64Var(&opts.input.GhostPassScans, "ghost-pass-scans", 0, "Monthly Ghost Pass scans")
	f.BoolVar(&opts.input.Verification.Enabled, "verification", false, "Include identity verification")
	f.Int64Var(&opts.input.Verification.Basic, "verification-basic", 0, "Basic checks per month")
	f.Int64Var(&opts.input.Verification.Standard, "verification-standard", 0, "Standard checks per month")
	f.Int64Var(&opts.input.Verification.Deep, "verification-deep", 0, "Deep checks per month")
	f.StringVar(&opts.input.TierOverride, "tier", "", "Force a tier instead of selecting by volume")
	f.StringVar(&opts.customer.Name, "customer", "", "Customer contact name")
	f.StringVar(&opts.customer.Company, "company", "", "Customer company")
	f.StringVar(&opts.customer.Email, "email", "", "Customer email")
	f.StringVar(&opts.customer.PreparedBy, "prepared-by", "", "Name printed as the preparer")
	f.StringVar(&opts.format, "format", "text", "Output: text, json, proposal, order-form or xlsx")
	f.StringVarP(&opts.output, "out", "o", "", "Write to this file instead of stdout (required for xlsx)")
	return cmd
}

func runQuote(stdout io.Writer, opts quoteOptions, issued time.Time) error {
	q := pricing.Calculate(opts.input)

	var data []byte
	var err error
	switch opts.format {
	case "text":
		data = []byte(quoteSummary(q))
	case "json":
		data, err = json.MarshalIndent(q, "", "  ")
		data = append(data, '\n')
	case "proposal":
		data, err = pricing.RenderProposal(q, opts.customer, issued)
	case "order-form":
		data, err = pricing.RenderOrderForm(q, opts.customer, issued)
	case "xlsx":
		if opts.output == "" {
			return fmt.Errorf("--out is required for xlsx")
		}
		data, err = pricing.ExportQuoteXLSX(q, opts.customer, issued)
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}
	if err != nil {
		return err
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", opts.output, len(data))
		return nil
	}
	_, err = stdout.Write(data)
	return err
}

func quoteSummary(q pricing.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tier:            %s\n", q.TierLabel)
	fmt.Fprintf(&b, "Monthly queries: %d\n", q.MonthlyQueries)
	fmt.Fprintf(&b, "Anchor:          %s\n", pricing.FormatMoney(q.Anchor))
	fmt.Fprintf(&b, "Overage:         %s\n", pricing.FormatMoney(q.OverageTotal))
	fmt.Fprintf(&b, "Verification:    %s\n", pricing.FormatMoney(q.VerificationCost))
	fmt.Fprintf(&b, "Risk multiplier: %s\n", q.RiskMultiplier.String())
	fmt.Fprintf(&b, "Total monthly:   %s\n", pricing.FormatMoney(q.TotalMonthly))
	fmt.Fprintf(&b, "Band:            %s - %s\n", pricing.FormatMoney(q.BandLow), pricing.FormatMoney(q.BandHigh))
	if q.UpgradeSuggested {
		fmt.Fprintf(&b, "Upgrade:         consider %s\n", q.SuggestedTier)
	}
	return b.String()
}
