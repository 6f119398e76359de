package insights

import (
	"gonum.org/v1/gonum/stat"

	M "custseg/model"
)

// NoneLabel names the top product or channel of an empty batch.
const NoneLabel = "None"

// Summary is the condensed view of a batch handed to the recommender.
type Summary struct {
	NumCustomers  int     `json:"customer_count"`
	AvgIncome     float64 `json:"avg_income"`
	AvgRecency    float64 `json:"avg_recency"`
	AvgTotalSpend float64 `json:"avg_total_spend"`
	TopProduct    string  `json:"top_product"`
	TopChannel    string  `json:"top_channel"`
	TopCluster    int     `json:"top_cluster"`
}

// Summarize condenses a batch. Means of an empty batch are 0, the top
// product and channel are "None" and the top cluster is -1.
func Summarize(customers []M.Customer) Summary {
	summary := Summary{
		NumCustomers: len(customers),
		TopProduct:   NoneLabel,
		TopChannel:   NoneLabel,
		TopCluster:   M.NoCluster,
	}
	if len(customers) == 0 {
		return summary
	}

	incomes := make([]float64, len(customers))
	recencies := make([]float64, len(customers))
	spends := make([]float64, len(customers))
	for i := range customers {
		incomes[i] = customers[i].Income
		recencies[i] = customers[i].Recency
		spends[i] = customers[i].TotalSpend
	}
	summary.AvgIncome = stat.Mean(incomes, nil)
	summary.AvgRecency = stat.Mean(recencies, nil)
	summary.AvgTotalSpend = stat.Mean(spends, nil)

	totals := productTotals(customers)
	summary.TopProduct = M.Product(argMax(totals[:])).DisplayName()

	means := channelMeans(customers)
	summary.TopChannel = M.Channel(argMax(means[:])).DisplayName()

	summary.TopCluster = modalCluster(customers)
	return summary
}

// argMax returns the index of the first largest value.
func argMax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

// modalCluster returns the most frequent cluster, the smallest on ties.
func modalCluster(customers []M.Customer) int {
	counts := make(map[int]int)
	for i := range customers {
		counts[customers[i].Cluster]++
	}
	mode, modeCount := M.NoCluster, 0
	for cluster, count := range counts {
		if count > modeCount || (count == modeCount && cluster < mode) {
			mode, modeCount = cluster, count
		}
	}
	return mode
}
