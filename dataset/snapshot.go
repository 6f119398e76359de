package dataset

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"

	M "custseg/model"
	U "custseg/util"
)

// SnapshotHeader returns the header of the augmented snapshot: pass-through
// columns first, then raw columns, then derived columns.
func SnapshotHeader(extraColumns []string) []string {
	header := make([]string, 0, len(extraColumns)+len(M.RequiredColumns())+5)
	header = append(header, extraColumns...)
	header = append(header, M.RequiredColumns()...)
	header = append(header, M.ColumnAge, M.ColumnTotalSpend, M.ColumnFrequency,
		M.ColumnTotalAccepted, M.ColumnCluster)
	return header
}

// WriteSnapshot writes the feature augmented customers as a tab separated table.
func WriteSnapshot(writer io.Writer, customers []M.Customer, extraColumns []string) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = separator

	if err := csvWriter.Write(SnapshotHeader(extraColumns)); err != nil {
		return errors.Wrap(err, "failed to write snapshot header")
	}

	for i := range customers {
		if err := csvWriter.Write(snapshotRow(&customers[i], extraColumns)); err != nil {
			return errors.Wrapf(err, "failed to write snapshot row %d", i)
		}
	}

	csvWriter.Flush()
	return errors.Wrap(csvWriter.Error(), "failed to flush snapshot")
}

func snapshotRow(customer *M.Customer, extraColumns []string) []string {
	row := make([]string, 0, len(extraColumns)+len(M.RequiredColumns())+5)
	for _, column := range extraColumns {
		row = append(row, customer.Extra[column])
	}

	row = append(row,
		strconv.Itoa(customer.YearBirth),
		U.FormatFloat(customer.Income),
		U.FormatDateZ(customer.EnrolledAt),
		U.FormatFloat(customer.Recency),
	)
	for _, spend := range customer.Spend {
		row = append(row, U.FormatFloat(spend))
	}
	for _, purchases := range customer.Purchases {
		row = append(row, U.FormatFloat(purchases))
	}
	row = append(row, U.FormatFloat(customer.WebVisitsMonth))
	for _, accepted := range customer.AcceptedCampaigns {
		row = append(row, U.FormatFloat(accepted))
	}

	row = append(row,
		strconv.Itoa(customer.Age),
		U.FormatFloat(customer.TotalSpend),
		U.FormatFloat(customer.Frequency),
		U.FormatFloat(customer.TotalAccepted),
		strconv.Itoa(customer.Cluster),
	)
	return row
}
