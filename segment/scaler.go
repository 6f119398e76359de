package segment

import (
	"math"

	"gonum.org/v1/gonum/stat"

	M "custseg/model"
)

// Scaler standardizes feature vectors with per feature mean and scale
// learned from a training batch.
type Scaler struct {
	Mean  [M.NumFeatures]float64
	Scale [M.NumFeatures]float64
}

// FitScaler learns mean and population standard deviation of every feature.
// A feature without variance gets a scale of 1 so it standardizes to zero.
func FitScaler(vectors [][M.NumFeatures]float64) Scaler {
	var scaler Scaler
	column := make([]float64, len(vectors))
	for feature := 0; feature < M.NumFeatures; feature++ {
		for i := range vectors {
			column[i] = vectors[i][feature]
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1.0
		}
		scaler.Mean[feature] = mean
		scaler.Scale[feature] = std
	}
	return scaler
}

// Transform returns the standardized vector (value - mean) / scale.
func (s *Scaler) Transform(vector [M.NumFeatures]float64) []float64 {
	standardized := make([]float64, M.NumFeatures)
	for i, value := range vector {
		standardized[i] = (value - s.Mean[i]) / s.Scale[i]
	}
	return standardized
}

// InverseTransform maps a standardized vector back to raw feature units.
func (s *Scaler) InverseTransform(standardized []float64) [M.NumFeatures]float64 {
	var vector [M.NumFeatures]float64
	for i := range vector {
		vector[i] = standardized[i]*s.Scale[i] + s.Mean[i]
	}
	return vector
}

func (s *Scaler) valid() bool {
	for i := 0; i < M.NumFeatures; i++ {
		if !isFinite(s.Mean[i]) || !isFinite(s.Scale[i]) || s.Scale[i] == 0 {
			return false
		}
	}
	return true
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
