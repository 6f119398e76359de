package model

import (
	"time"
)

// DefaultReferenceYear is the year ages are computed against.
const DefaultReferenceYear = 2025

// NoCluster marks a customer that has not been labelled by a segmentation model.
const NoCluster = -1

// Raw column names of the customer dataset.
const (
	ColumnYearBirth         = "Year_Birth"
	ColumnIncome            = "Income"
	ColumnEnrollmentDate    = "Dt_Customer"
	ColumnRecency           = "Recency"
	ColumnNumWebVisitsMonth = "NumWebVisitsMonth"
)

// Derived column names, used when the augmented table is written back.
const (
	ColumnAge           = "Age"
	ColumnTotalSpend    = "TotalSpend"
	ColumnFrequency     = "Frequency"
	ColumnTotalAccepted = "TotalAccepted"
	ColumnCluster       = "Cluster"
)

type Product int

const (
	ProductWines Product = iota
	ProductFruits
	ProductMeatProducts
	ProductFishProducts
	ProductSweetProducts
	ProductGoldProds
	NumProducts int = iota
)

var productColumns = [NumProducts]string{
	"MntWines", "MntFruits", "MntMeatProducts",
	"MntFishProducts", "MntSweetProducts", "MntGoldProds",
}

var productNames = [NumProducts]string{
	"Wines", "Fruits", "Meat Products",
	"Fish Products", "Sweet Products", "Gold Products",
}

// Column returns the raw "amount spent" column for the product category.
func (p Product) Column() string {
	return productColumns[p]
}

// DisplayName returns the human readable category name.
func (p Product) DisplayName() string {
	return productNames[p]
}

// Products lists every product category in column order.
func Products() []Product {
	products := make([]Product, 0, NumProducts)
	for i := 0; i < NumProducts; i++ {
		products = append(products, Product(i))
	}
	return products
}

type Channel int

const (
	ChannelWeb Channel = iota
	ChannelCatalog
	ChannelStore
	NumChannels int = iota
)

var channelColumns = [NumChannels]string{
	"NumWebPurchases", "NumCatalogPurchases", "NumStorePurchases",
}

var channelNames = [NumChannels]string{
	"Web Purchases", "Catalog Purchases", "Store Purchases",
}

// Column returns the raw purchase-count column for the channel.
func (c Channel) Column() string {
	return channelColumns[c]
}

// DisplayName returns the human readable channel name.
func (c Channel) DisplayName() string {
	return channelNames[c]
}

// Channels lists every purchase channel in column order.
func Channels() []Channel {
	channels := make([]Channel, 0, NumChannels)
	for i := 0; i < NumChannels; i++ {
		channels = append(channels, Channel(i))
	}
	return channels
}

// WebVisitsDisplayName is the display name of the monthly web visit metric.
const WebVisitsDisplayName = "Web Visits / Month"

const NumCampaigns = 5

// CampaignColumn returns the acceptance flag column of campaign i (0 based).
func CampaignColumn(i int) string {
	return campaignColumns[i]
}

var campaignColumns = [NumCampaigns]string{
	"AcceptedCmp1", "AcceptedCmp2", "AcceptedCmp3", "AcceptedCmp4", "AcceptedCmp5",
}

// RequiredColumns lists the raw columns the pipeline cannot run without.
func RequiredColumns() []string {
	columns := []string{ColumnYearBirth, ColumnIncome, ColumnEnrollmentDate, ColumnRecency}
	columns = append(columns, productColumns[:]...)
	columns = append(columns, channelColumns[:]...)
	columns = append(columns, ColumnNumWebVisitsMonth)
	columns = append(columns, campaignColumns[:]...)
	return columns
}

// IsRequiredColumn returns true if the column is consumed by the pipeline.
func IsRequiredColumn(column string) bool {
	for _, c := range RequiredColumns() {
		if c == column {
			return true
		}
	}
	return false
}

// Customer is one row of the working table: raw attributes with
// missing values already imputed, plus the derived features.
type Customer struct {
	YearBirth         int
	Income            float64
	EnrolledAt        time.Time
	Recency           float64
	Spend             [NumProducts]float64
	Purchases         [NumChannels]float64
	WebVisitsMonth    float64
	AcceptedCampaigns [NumCampaigns]float64

	Age           int
	TotalSpend    float64
	Frequency     float64
	TotalAccepted float64
	Cluster       int

	// Columns not consumed by the pipeline, kept verbatim.
	Extra map[string]string
}

// NumFeatures is the width of the segmentation feature vector.
const NumFeatures = 5

// FeatureNames names the segmentation features in vector order.
var FeatureNames = [NumFeatures]string{
	ColumnAge, ColumnIncome, ColumnTotalSpend, ColumnRecency, ColumnFrequency,
}

// Features returns the segmentation feature vector
// {age, income, total spend, recency, frequency}.
func (c *Customer) Features() [NumFeatures]float64 {
	return [NumFeatures]float64{
		float64(c.Age), c.Income, c.TotalSpend, c.Recency, c.Frequency,
	}
}
