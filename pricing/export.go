package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const quoteSheet = "Quote"

// ExportQuoteXLSX writes the quote breakdown as a one-sheet workbook.
func ExportQuoteXLSX(q Quote, c Customer, issued time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", quoteSheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 7})
	if err != nil {
		return nil, err
	}

	toFloat := func(d decimal.Decimal) float64 {
		v, _ := d.Float64()
		return v
	}

	rows := [][]interface{}{
		{"VALID Pricing Quote"},
		{"Customer", c.Name},
		{"Company", c.Company},
		{"Issued", issued.UTC().Format("2006-01-02")},
		{},
		{"Users governed", q.Input.Users},
		{"Queries per user/day", q.Input.QueriesPerDay},
		{"Monthly query volume", q.MonthlyQueries},
		{"Ghost Pass scans", q.Input.GhostPassScans},
		{"Ports connected", q.Input.PortsConnected},
		{"Risk level", string(q.Input.Risk)},
		{"Tier", q.TierLabel},
		{},
		{"Line item", "Amount"},
	}
	moneyRows := [][]interface{}{
		{"Platform anchor", toFloat(q.Anchor)},
		{"Query overage", toFloat(q.Queries.Cost)},
		{"Scan overage", toFloat(q.Scans.Cost)},
		{"Port overage", toFloat(q.Ports.Cost)},
		{"Verification checks", toFloat(q.VerificationCost)},
		{"Subtotal", toFloat(q.Subtotal)},
		{"Risk multiplier", toFloat(q.RiskMultiplier)},
		{"Total monthly", toFloat(q.TotalMonthly)},
		{"Negotiation low", toFloat(q.BandLow)},
		{"Negotiation high", toFloat(q.BandHigh)},
		{"Competitor baseline", toFloat(q.CompetitorBaseline)},
	}

	r := 1
	for _, row := range rows {
		if len(row) > 0 {
			cell, _ := excelize.CoordinatesToCellName(1, r)
			if err := f.SetSheetRow(quoteSheet, cell, &row); err != nil {
				return nil, err
			}
		}
		r++
	}
	if err := f.SetCellStyle(quoteSheet, "A1", "A1", bold); err != nil {
		return nil, err
	}
	header := fmt.Sprintf("A%d", r-1)
	if err := f.SetCellStyle(quoteSheet, header, fmt.Sprintf("B%d", r-1), bold); err != nil {
		return nil, err
	}

	firstMoney := r
	for _, row := range moneyRows {
		cell, _ := excelize.CoordinatesToCellName(1, r)
		if err := f.SetSheetRow(quoteSheet, cell, &row); err != nil {
			return nil, err
		}
		r++
	}
	if err := f.SetCellStyle(quoteSheet, fmt.Sprintf("B%d", firstMoney), fmt.Sprintf("B%d", r-1), money); err != nil {
		return nil, err
	}
	// the multiplier is a factor, not currency
	if err := f.SetCellStyle(quoteSheet, fmt.Sprintf("B%d", firstMoney+6), fmt.Sprintf("B%d", firstMoney+6), 0); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(quoteSheet, fmt.Sprintf("A%d", firstMoney+7), fmt.Sprintf("A%d", firstMoney+7), bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(quoteSheet, "A", "A", 28); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(quoteSheet, "B", "B", 18); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
