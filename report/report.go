// Package report writes insight facets to an XLSX workbook, one sheet per facet.
package report

import (
	"bytes"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/pkg/errors"

	"custseg/insights"
)

const (
	SheetSummary           = "Summary"
	SheetProductPreference = "Product Preference"
	SheetChannelUsage      = "Channel Usage"
	SheetSpendByAge        = "Spend By Age"
	SheetClusterSummary    = "Cluster Summary"

	defaultSheet = "Sheet1"
)

// Sheets lists the workbook sheets in order.
func Sheets() []string {
	return []string{SheetSummary, SheetProductPreference, SheetChannelUsage, SheetSpendByAge, SheetClusterSummary}
}

// Build creates the workbook for one period.
func Build(period string, summary insights.Summary, in insights.Insights) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName(defaultSheet, SheetSummary)
	for _, sheet := range Sheets()[1:] {
		f.NewSheet(sheet)
	}
	f.SetActiveSheet(0)

	summaryRows := [][]interface{}{
		{"Period", period},
		{"Customers", summary.NumCustomers},
		{"Average Income", summary.AvgIncome},
		{"Average Recency", summary.AvgRecency},
		{"Average Total Spend", summary.AvgTotalSpend},
		{"Top Product", summary.TopProduct},
		{"Top Channel", summary.TopChannel},
		{"Top Cluster", summary.TopCluster},
	}
	if err := writeRows(f, SheetSummary, []interface{}{"Metric", "Value"}, summaryRows); err != nil {
		return nil, err
	}

	rows := make([][]interface{}, 0, len(in.ProductPreference))
	for _, p := range in.ProductPreference {
		rows = append(rows, []interface{}{p.Name, p.Column, p.Total})
	}
	if err := writeRows(f, SheetProductPreference, []interface{}{"Product", "Column", "Total"}, rows); err != nil {
		return nil, err
	}

	rows = make([][]interface{}, 0, len(in.ChannelUsage))
	for _, c := range in.ChannelUsage {
		rows = append(rows, []interface{}{c.Name, c.Column, c.Mean})
	}
	if err := writeRows(f, SheetChannelUsage, []interface{}{"Channel", "Column", "Avg"}, rows); err != nil {
		return nil, err
	}

	rows = make([][]interface{}, 0, len(in.SpendByAge))
	for _, a := range in.SpendByAge {
		rows = append(rows, []interface{}{a.Group, a.NumCustomers, a.MeanTotalSpend})
	}
	if err := writeRows(f, SheetSpendByAge, []interface{}{"Age Group", "Customers", "Avg Total Spend"}, rows); err != nil {
		return nil, err
	}

	rows = make([][]interface{}, 0, len(in.ClusterSummary))
	for _, c := range in.ClusterSummary {
		rows = append(rows, []interface{}{c.Cluster, c.NumCustomers, c.Age, c.Income, c.TotalSpend, c.Recency, c.Frequency})
	}
	header := []interface{}{"Cluster", "Customers", "Age", "Income", "TotalSpend", "Recency", "Frequency"}
	if err := writeRows(f, SheetClusterSummary, header, rows); err != nil {
		return nil, err
	}
	return f, nil
}

func writeRows(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}) error {
	for r, row := range append([][]interface{}{header}, rows...) {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return errors.Wrapf(err, "invalid cell in sheet %s", sheet)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return errors.Wrapf(err, "failed to write cell %s of sheet %s", cell, sheet)
			}
		}
	}
	return nil
}

// Write renders the workbook into a buffer.
func Write(period string, summary insights.Summary, in insights.Insights) (*bytes.Buffer, error) {
	f, err := Build(period, summary, in)
	if err != nil {
		return nil, err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to write workbook")
	}
	return buf, nil
}
