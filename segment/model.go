// Package segment learns customer segments with k-means over standardized
// behavioural features, and persists the learned parameters.
package segment

import (
	M "custseg/model"
)

// Model is a trained segmentation: a scaler and k centers in standardized
// feature space. A Model only comes out of Fit or Store.Load and is never
// modified afterwards, so it is safe for concurrent use.
type Model struct {
	K          int
	Scaler     Scaler
	Centers    [][]float64
	Iterations int
}

// Trained is false for a zero or partially built Model.
func (m *Model) Trained() bool {
	return m != nil && m.K >= 1 && len(m.Centers) == m.K && m.Scaler.valid()
}

// Assign returns the cluster of a single raw feature vector, or
// M.NoCluster if the model is not trained.
func (m *Model) Assign(features [M.NumFeatures]float64) int {
	if !m.Trained() {
		return M.NoCluster
	}
	return nearestCenter(m.Scaler.Transform(features), m.Centers)
}

// Predict returns a copy of the batch labelled with the nearest cluster.
func (m *Model) Predict(customers []M.Customer) []M.Customer {
	labelled := make([]M.Customer, len(customers))
	copy(labelled, customers)
	for i := range labelled {
		labelled[i].Cluster = m.Assign(labelled[i].Features())
	}
	return labelled
}

// RawCenters returns the cluster centers in raw feature units.
func (m *Model) RawCenters() [][M.NumFeatures]float64 {
	raw := make([][M.NumFeatures]float64, len(m.Centers))
	for i, center := range m.Centers {
		raw[i] = m.Scaler.InverseTransform(center)
	}
	return raw
}
