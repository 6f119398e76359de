package preprocess

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custseg/dataset"
	M "custseg/model"
)

const header = "ID\tYear_Birth\tEducation\tIncome\tDt_Customer\tRecency\t" +
	"MntWines\tMntFruits\tMntMeatProducts\tMntFishProducts\tMntSweetProducts\tMntGoldProds\t" +
	"NumDealsPurchases\tNumWebPurchases\tNumCatalogPurchases\tNumStorePurchases\tNumWebVisitsMonth\t" +
	"AcceptedCmp3\tAcceptedCmp4\tAcceptedCmp5\tAcceptedCmp1\tAcceptedCmp2\tResponse"

type rawRow struct {
	id, yearBirth, income, date, recency string
	spend                                [6]string
	web, catalog, store, visits          string
	campaigns                            [5]string
}

func (r rawRow) line() string {
	cells := []string{r.id, r.yearBirth, "Graduation", r.income, r.date, r.recency}
	cells = append(cells, r.spend[:]...)
	cells = append(cells, "1", r.web, r.catalog, r.store, r.visits)
	cells = append(cells, r.campaigns[:]...)
	cells = append(cells, "0")
	return strings.Join(cells, "\t")
}

func buildTable(t *testing.T, rows ...rawRow) *dataset.Table {
	lines := []string{header}
	for _, r := range rows {
		lines = append(lines, r.line())
	}
	table, err := dataset.Read(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	require.Nil(t, err)
	return table
}

func row(id string, yearBirth string, income string, date string) rawRow {
	return rawRow{
		id: id, yearBirth: yearBirth, income: income, date: date, recency: "10",
		spend: [6]string{"100", "20", "30", "40", "5", "6"},
		web:   "4", catalog: "2", store: "7", visits: "5",
		campaigns: [5]string{"0", "1", "0", "1", "1"},
	}
}

func TestPreprocessDerivesFeatures(t *testing.T) {
	table := buildTable(t, row("1", "1957", "58138", "04-09-2012"))

	customers, err := Preprocess(table, M.DefaultReferenceYear)
	require.Nil(t, err)
	require.Len(t, customers, 1)

	c := customers[0]
	assert.Equal(t, 1957, c.YearBirth)
	assert.Equal(t, 2025-1957, c.Age)
	assert.Equal(t, 58138.0, c.Income)
	assert.Equal(t, time.Date(2012, time.September, 4, 0, 0, 0, 0, time.UTC), c.EnrolledAt)
	assert.Equal(t, 10.0, c.Recency)
	assert.Equal(t, 201.0, c.TotalSpend)
	assert.Equal(t, 13.0, c.Frequency)
	assert.Equal(t, 5.0, c.WebVisitsMonth)
	assert.Equal(t, 3.0, c.TotalAccepted)
	// stored by campaign number, not header order
	assert.Equal(t, [M.NumCampaigns]float64{1, 1, 0, 1, 0}, c.AcceptedCampaigns)
	assert.Equal(t, M.NoCluster, c.Cluster)
	assert.Equal(t, map[string]string{"ID": "1", "Education": "Graduation", "NumDealsPurchases": "1", "Response": "0"}, c.Extra)
}

func TestPreprocessSumInvariants(t *testing.T) {
	rows := make([]rawRow, 0)
	for i := 0; i < 20; i++ {
		r := row(fmt.Sprint(i), fmt.Sprint(1940+i), fmt.Sprint(30000+i*1000), "2013-01-15")
		for p := range r.spend {
			r.spend[p] = fmt.Sprint((i + 1) * (p + 3))
		}
		r.web, r.catalog, r.store = fmt.Sprint(i), fmt.Sprint(i%3), fmt.Sprint(2*i)
		if i%4 == 0 {
			r.spend[2] = ""
			r.store = "x"
			r.yearBirth = ""
		}
		rows = append(rows, r)
	}

	customers, err := Preprocess(buildTable(t, rows...), 2030)
	require.Nil(t, err)
	require.Len(t, customers, 20)

	for _, c := range customers {
		sum := 0.0
		for _, spend := range c.Spend {
			sum += spend
		}
		assert.Equal(t, sum, c.TotalSpend)
		assert.Equal(t, c.Purchases[M.ChannelWeb]+c.Purchases[M.ChannelCatalog]+c.Purchases[M.ChannelStore], c.Frequency)
		if c.YearBirth != 0 {
			assert.Equal(t, 2030-c.YearBirth, c.Age)
		} else {
			assert.Equal(t, 0, c.Age)
		}
	}
	assert.Equal(t, 0.0, customers[0].Spend[M.ProductMeatProducts])
	assert.Equal(t, 0.0, customers[0].Purchases[M.ChannelStore])
}

func TestPreprocessDropsOnlyUnparseableDates(t *testing.T) {
	table := buildTable(t,
		row("1", "1957", "1000", "04-09-2012"),
		row("2", "1960", "2000", ""),
		row("3", "1961", "3000", "not a date"),
		row("4", "1962", "4000", "2014-06-30"),
		row("5", "1963", "5000", "31-02-2013"),
	)

	customers, err := Preprocess(table, M.DefaultReferenceYear)
	require.Nil(t, err)

	ids := []string{}
	for _, c := range customers {
		ids = append(ids, c.Extra["ID"])
	}
	assert.Equal(t, []string{"1", "4"}, ids)
}

func TestPreprocessImputesMedianIncome(t *testing.T) {
	table := buildTable(t,
		row("1", "1957", "10", "04-09-2012"),
		row("2", "1957", "", "04-09-2012"),
		row("3", "1957", "40", "04-09-2012"),
		row("4", "1957", "20", "04-09-2012"),
		row("5", "1957", "", "04-09-2012"),
		row("6", "1957", "30", "04-09-2012"),
		row("7", "1957", "50", "04-09-2012"),
	)

	customers, err := Preprocess(table, M.DefaultReferenceYear)
	require.Nil(t, err)
	require.Len(t, customers, 7)

	assert.Equal(t, 30.0, customers[1].Income)
	assert.Equal(t, 30.0, customers[4].Income)

	incomes := []float64{}
	for _, c := range customers {
		incomes = append(incomes, c.Income)
	}
	median, err := Median(incomes)
	assert.Nil(t, err)
	assert.Equal(t, 30.0, median)
}

func TestPreprocessWithoutAnyIncome(t *testing.T) {
	table := buildTable(t, row("1", "1957", "", "04-09-2012"))
	customers, err := Preprocess(table, M.DefaultReferenceYear)
	require.Nil(t, err)
	assert.Equal(t, 0.0, customers[0].Income)
}

func TestPreprocessSchemaError(t *testing.T) {
	input := "ID\tYear_Birth\tDt_Customer\n1\t1957\t04-09-2012\n"
	table, err := dataset.Read(strings.NewReader(input))
	require.Nil(t, err)

	customers, err := Preprocess(table, M.DefaultReferenceYear)
	assert.Nil(t, customers)
	require.NotNil(t, err)
	assert.True(t, M.IsSchemaError(err))

	schemaErr := err.(*M.SchemaError)
	assert.Contains(t, schemaErr.Missing, M.ColumnIncome)
	assert.Contains(t, schemaErr.Missing, "MntGoldProds")
	assert.NotContains(t, schemaErr.Missing, M.ColumnYearBirth)
}

func TestPreprocessDoesNotMutateTable(t *testing.T) {
	table := buildTable(t, row("1", "1957", "", "04-09-2012"), row("2", "1957", "10", "04-09-2012"))
	_, err := Preprocess(table, M.DefaultReferenceYear)
	require.Nil(t, err)

	i, _ := table.ColumnIndex(M.ColumnIncome)
	assert.Equal(t, "", table.Rows[0][i])
}

func TestMedian(t *testing.T) {
	m, err := Median([]float64{3, 1, 2})
	assert.Nil(t, err)
	assert.Equal(t, 2.0, m)

	m, err = Median([]float64{4, 1, 3, 2})
	assert.Nil(t, err)
	assert.Equal(t, 2.5, m)

	_, err = Median([]float64{})
	assert.NotNil(t, err)
}
