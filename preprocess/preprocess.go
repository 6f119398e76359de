// Package preprocess derives the behavioural features of every customer
// from the raw export.
package preprocess

import (
	"custseg/dataset"
	M "custseg/model"
	U "custseg/util"
)

type columnIndexes struct {
	yearBirth      int
	income         int
	enrollmentDate int
	recency        int
	spend          [M.NumProducts]int
	purchases      [M.NumChannels]int
	webVisits      int
	campaigns      [M.NumCampaigns]int
	extra          map[string]int
}

func resolveColumns(table *dataset.Table) (*columnIndexes, error) {
	if missing := table.MissingColumns(M.RequiredColumns()); len(missing) > 0 {
		return nil, &M.SchemaError{Missing: missing}
	}

	index := func(column string) int {
		i, _ := table.ColumnIndex(column)
		return i
	}

	columns := &columnIndexes{
		yearBirth:      index(M.ColumnYearBirth),
		income:         index(M.ColumnIncome),
		enrollmentDate: index(M.ColumnEnrollmentDate),
		recency:        index(M.ColumnRecency),
		webVisits:      index(M.ColumnNumWebVisitsMonth),
		extra:          make(map[string]int),
	}
	for _, product := range M.Products() {
		columns.spend[product] = index(product.Column())
	}
	for _, channel := range M.Channels() {
		columns.purchases[channel] = index(channel.Column())
	}
	for i := 0; i < M.NumCampaigns; i++ {
		columns.campaigns[i] = index(M.CampaignColumn(i))
	}
	for _, column := range table.ExtraColumns() {
		columns.extra[column] = index(column)
	}
	return columns, nil
}

// Preprocess turns the raw export into the working table.
//
// Missing incomes are replaced by the median income of the batch, rows whose
// enrollment date cannot be parsed are dropped and every other missing or
// malformed numeric cell reads as zero. The table is not modified.
func Preprocess(table *dataset.Table, referenceYear int) ([]M.Customer, error) {
	columns, err := resolveColumns(table)
	if err != nil {
		return nil, err
	}

	incomes := make([]float64, 0, table.Len())
	for _, row := range table.Rows {
		if income, ok := U.ParseFloatOrZero(row[columns.income]); ok {
			incomes = append(incomes, income)
		}
	}
	medianIncome := 0.0
	if len(incomes) > 0 {
		medianIncome, _ = Median(incomes)
	}

	customers := make([]M.Customer, 0, table.Len())
	for _, row := range table.Rows {
		enrolledAt, err := U.ParseCustomerDateZ(row[columns.enrollmentDate])
		if err != nil {
			continue
		}

		customer := M.Customer{EnrolledAt: enrolledAt, Cluster: M.NoCluster}

		income, ok := U.ParseFloatOrZero(row[columns.income])
		if !ok {
			income = medianIncome
		}
		customer.Income = income

		if yearBirth, ok := U.ParseFloatOrZero(row[columns.yearBirth]); ok {
			customer.YearBirth = int(yearBirth)
			customer.Age = referenceYear - customer.YearBirth
		}

		customer.Recency, _ = U.ParseFloatOrZero(row[columns.recency])
		customer.WebVisitsMonth, _ = U.ParseFloatOrZero(row[columns.webVisits])
		for product, i := range columns.spend {
			customer.Spend[product], _ = U.ParseFloatOrZero(row[i])
		}
		for channel, i := range columns.purchases {
			customer.Purchases[channel], _ = U.ParseFloatOrZero(row[i])
		}
		for campaign, i := range columns.campaigns {
			customer.AcceptedCampaigns[campaign], _ = U.ParseFloatOrZero(row[i])
		}

		if len(columns.extra) > 0 {
			customer.Extra = make(map[string]string, len(columns.extra))
			for column, i := range columns.extra {
				customer.Extra[column] = row[i]
			}
		}

		Derive(&customer, referenceYear)
		customers = append(customers, customer)
	}

	return customers, nil
}

// Derive recomputes the derived sums of an already imputed customer.
// Age is left as is since a missing birth year reads as age zero.
func Derive(customer *M.Customer, referenceYear int) {
	if customer.YearBirth != 0 {
		customer.Age = referenceYear - customer.YearBirth
	}

	customer.TotalSpend = 0
	for _, spend := range customer.Spend {
		customer.TotalSpend += spend
	}

	customer.Frequency = 0
	for _, purchases := range customer.Purchases {
		customer.Frequency += purchases
	}

	customer.TotalAccepted = 0
	for _, accepted := range customer.AcceptedCampaigns {
		customer.TotalAccepted += accepted
	}
}
