// Package insights aggregates a batch of labelled customers into the
// dashboard facets: product preference, channel usage, spend by age group
// and a per-cluster profile.
package insights

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	M "custseg/model"
	U "custseg/util"
)

type ProductTotal struct {
	Product M.Product `json:"product_id"`
	Column  string    `json:"column"`
	Name    string    `json:"name"`
	Total   float64   `json:"total"`
}

type ChannelUsage struct {
	Column string  `json:"column"`
	Name   string  `json:"name"`
	Mean   float64 `json:"avg"`
}

type AgeGroupSpend struct {
	Group          string  `json:"age_group"`
	NumCustomers   int     `json:"customers"`
	MeanTotalSpend float64 `json:"avg_total_spend"`
}

// ClusterProfile holds the mean features of one cluster, rounded to two decimals.
type ClusterProfile struct {
	Cluster      int     `json:"cluster"`
	NumCustomers int     `json:"customers"`
	Age          float64 `json:"age"`
	Income       float64 `json:"income"`
	TotalSpend   float64 `json:"total_spend"`
	Recency      float64 `json:"recency"`
	Frequency    float64 `json:"frequency"`
}

// Insights is the full set of facets for one batch.
type Insights struct {
	ProductPreference []ProductTotal   `json:"product_preference"`
	ChannelUsage      []ChannelUsage   `json:"channel_usage"`
	SpendByAge        []AgeGroupSpend  `json:"spend_by_age"`
	ClusterSummary    []ClusterProfile `json:"cluster_summary"`
}

// IsEmpty is true when the batch had no customers.
func (in *Insights) IsEmpty() bool {
	return len(in.ProductPreference) == 0 && len(in.ChannelUsage) == 0 &&
		len(in.SpendByAge) == 0 && len(in.ClusterSummary) == 0
}

type ageGroup struct {
	label string
	// Ages in (low, high].
	low, high int
}

var ageGroups = []ageGroup{
	{"18-30", 18, 30},
	{"30-40", 30, 40},
	{"40-50", 40, 50},
	{"50-60", 50, 60},
	{"60+", 60, 99},
}

// AgeGroupLabel returns the age group of an age, false if outside (18, 99].
func AgeGroupLabel(age int) (string, bool) {
	i := ageGroupIndex(age)
	if i < 0 {
		return "", false
	}
	return ageGroups[i].label, true
}

func ageGroupIndex(age int) int {
	for i, group := range ageGroups {
		if age > group.low && age <= group.high {
			return i
		}
	}
	return -1
}

func emptyInsights() Insights {
	return Insights{
		ProductPreference: make([]ProductTotal, 0),
		ChannelUsage:      make([]ChannelUsage, 0),
		SpendByAge:        make([]AgeGroupSpend, 0),
		ClusterSummary:    make([]ClusterProfile, 0),
	}
}

// Compute builds the four facets of a batch. An empty batch gives four
// empty facets.
func Compute(customers []M.Customer) Insights {
	if len(customers) == 0 {
		return emptyInsights()
	}
	return Insights{
		ProductPreference: productPreference(customers),
		ChannelUsage:      channelUsage(customers),
		SpendByAge:        spendByAge(customers),
		ClusterSummary:    clusterSummary(customers),
	}
}

// productTotals sums the spend of each product category in column order.
func productTotals(customers []M.Customer) [M.NumProducts]float64 {
	var totals [M.NumProducts]float64
	for i := range customers {
		floats.Add(totals[:], customers[i].Spend[:])
	}
	return totals
}

func productPreference(customers []M.Customer) []ProductTotal {
	totals := productTotals(customers)
	result := make([]ProductTotal, 0, M.NumProducts)
	for _, product := range M.Products() {
		result = append(result, ProductTotal{
			Product: product,
			Column:  product.Column(),
			Name:    product.DisplayName(),
			Total:   totals[product],
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Total > result[j].Total
	})
	return result
}

// channelMeans averages the purchase count of each channel in column order.
func channelMeans(customers []M.Customer) [M.NumChannels]float64 {
	var means [M.NumChannels]float64
	for i := range customers {
		floats.Add(means[:], customers[i].Purchases[:])
	}
	floats.Scale(1/float64(len(customers)), means[:])
	return means
}

func channelUsage(customers []M.Customer) []ChannelUsage {
	means := channelMeans(customers)
	result := make([]ChannelUsage, 0, M.NumChannels+1)
	for _, channel := range M.Channels() {
		result = append(result, ChannelUsage{
			Column: channel.Column(),
			Name:   channel.DisplayName(),
			Mean:   means[channel],
		})
	}

	visits := make([]float64, len(customers))
	for i := range customers {
		visits[i] = customers[i].WebVisitsMonth
	}
	result = append(result, ChannelUsage{
		Column: M.ColumnNumWebVisitsMonth,
		Name:   M.WebVisitsDisplayName,
		Mean:   stat.Mean(visits, nil),
	})

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Mean > result[j].Mean
	})
	return result
}

func spendByAge(customers []M.Customer) []AgeGroupSpend {
	spends := make([][]float64, len(ageGroups))
	for i := range customers {
		group := ageGroupIndex(customers[i].Age)
		if group < 0 {
			continue
		}
		spends[group] = append(spends[group], customers[i].TotalSpend)
	}

	result := make([]AgeGroupSpend, 0, len(ageGroups))
	for i, group := range ageGroups {
		if len(spends[i]) == 0 {
			continue
		}
		result = append(result, AgeGroupSpend{
			Group:          group.label,
			NumCustomers:   len(spends[i]),
			MeanTotalSpend: stat.Mean(spends[i], nil),
		})
	}
	return result
}

type clusterSums struct {
	count int
	sums  [M.NumFeatures]float64
}

func clusterSummary(customers []M.Customer) []ClusterProfile {
	byCluster := make(map[int]*clusterSums)
	for i := range customers {
		sums, exists := byCluster[customers[i].Cluster]
		if !exists {
			sums = &clusterSums{}
			byCluster[customers[i].Cluster] = sums
		}
		features := customers[i].Features()
		floats.Add(sums.sums[:], features[:])
		sums.count++
	}

	clusters := make([]int, 0, len(byCluster))
	for cluster := range byCluster {
		clusters = append(clusters, cluster)
	}
	sort.Ints(clusters)

	result := make([]ClusterProfile, 0, len(clusters))
	for _, cluster := range clusters {
		sums := byCluster[cluster]
		var means [M.NumFeatures]float64
		for f := range means {
			means[f] = U.RoundTwoDecimals(sums.sums[f] / float64(sums.count))
		}
		result = append(result, ClusterProfile{
			Cluster:      cluster,
			NumCustomers: sums.count,
			Age:          means[0],
			Income:       means[1],
			TotalSpend:   means[2],
			Recency:      means[3],
			Frequency:    means[4],
		})
	}
	return result
}
