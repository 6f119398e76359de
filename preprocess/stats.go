package preprocess

import (
	"fmt"
	"math"
	"sort"
)

// sortedCopy returns a sorted copy of float64s
func sortedCopy(input []float64) []float64 {
	c := make([]float64, len(input))
	copy(c, input)
	sort.Float64s(c)
	return c
}

// Median gets the median of a slice of numbers. An even number of values
// yields the mean of the two middle ones.
func Median(input []float64) (float64, error) {
	length := len(input)
	if length == 0 {
		return math.NaN(), fmt.Errorf("slice is empty")
	}

	c := sortedCopy(input)
	if length%2 == 1 {
		return c[length/2], nil
	}
	return (c[length/2-1] + c[length/2]) / 2, nil
}
