package segment

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	M "custseg/model"
)

const (
	DefaultNumClusters   = 4
	DefaultMaxIterations = 300
	DefaultSeed          = 42
)

// Config controls a training run.
type Config struct {
	K             int
	MaxIterations int
	Seed          int64
}

func DefaultConfig() Config {
	return Config{K: DefaultNumClusters, MaxIterations: DefaultMaxIterations, Seed: DefaultSeed}
}

// Fit standardizes the segmentation features of the batch and clusters them
// with Lloyd's k-means, seeded by k-means++ from cfg.Seed. It returns the
// learned model and a copy of the batch labelled with its clusters.
func Fit(customers []M.Customer, cfg Config) (*Model, []M.Customer, error) {
	if cfg.K < 1 {
		return nil, nil, errors.Errorf("invalid number of clusters %d", cfg.K)
	}
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if len(customers) == 0 {
		return nil, nil, errors.New("cannot fit segmentation model on an empty batch")
	}

	vectors := make([][M.NumFeatures]float64, len(customers))
	for i := range customers {
		vectors[i] = customers[i].Features()
	}

	scaler := FitScaler(vectors)
	points := make([][]float64, len(vectors))
	for i := range vectors {
		points[i] = scaler.Transform(vectors[i])
	}

	if distinct := countDistinct(vectors, cfg.K); distinct < cfg.K {
		return nil, nil, errors.Errorf("batch has %d distinct feature vectors, fewer than %d clusters", distinct, cfg.K)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	centers := initCenters(points, cfg.K, rng)
	if len(centers) < cfg.K {
		return nil, nil, errors.Errorf("could only seed %d of %d clusters", len(centers), cfg.K)
	}

	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = M.NoCluster
	}

	iterations := 0
	for {
		changed := assignAll(points, centers, labels)
		iterations++
		if !changed || iterations >= cfg.MaxIterations {
			break
		}
		updateCenters(points, labels, centers)
	}

	model := &Model{K: cfg.K, Scaler: scaler, Centers: centers, Iterations: iterations}

	labelled := make([]M.Customer, len(customers))
	copy(labelled, customers)
	for i := range labelled {
		labelled[i].Cluster = labels[i]
	}
	return model, labelled, nil
}

// countDistinct counts distinct vectors, stopping once limit is reached.
func countDistinct(vectors [][M.NumFeatures]float64, limit int) int {
	seen := make(map[[M.NumFeatures]float64]struct{})
	for _, vector := range vectors {
		seen[vector] = struct{}{}
		if len(seen) >= limit {
			break
		}
	}
	return len(seen)
}

// initCenters picks k distinct points with k-means++: the first uniformly,
// every next one with probability proportional to its squared distance to
// the closest center picked so far.
func initCenters(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(points[rng.Intn(len(points))]))

	closest := make([]float64, len(points))
	for i := range points {
		closest[i] = squaredDistance(points[i], centers[0])
	}

	for len(centers) < k {
		total := floats.Sum(closest)
		next := -1
		if total > 0 {
			target := rng.Float64() * total
			cumulative := 0.0
			for i, d := range closest {
				if d == 0 {
					continue
				}
				cumulative += d
				next = i
				if cumulative >= target {
					break
				}
			}
		}
		if next < 0 {
			// Every remaining point coincides with a center.
			break
		}

		center := clone(points[next])
		centers = append(centers, center)
		for i := range points {
			closest[i] = math.Min(closest[i], squaredDistance(points[i], center))
		}
	}
	return centers
}

// assignAll labels every point with its nearest center and reports whether
// any label changed.
func assignAll(points, centers [][]float64, labels []int) bool {
	changed := false
	for i, point := range points {
		nearest := nearestCenter(point, centers)
		if labels[i] != nearest {
			labels[i] = nearest
			changed = true
		}
	}
	return changed
}

// updateCenters moves every center to the mean of its points. A center
// without points stays where it is.
func updateCenters(points [][]float64, labels []int, centers [][]float64) {
	sums := make([][]float64, len(centers))
	counts := make([]int, len(centers))
	for i := range sums {
		sums[i] = make([]float64, M.NumFeatures)
	}
	for i, point := range points {
		floats.Add(sums[labels[i]], point)
		counts[labels[i]]++
	}
	for i := range centers {
		if counts[i] == 0 {
			continue
		}
		floats.Scale(1/float64(counts[i]), sums[i])
		centers[i] = sums[i]
	}
}

// nearestCenter returns the index of the closest center by Euclidean
// distance. Ties go to the lowest index.
func nearestCenter(point []float64, centers [][]float64) int {
	nearest := 0
	best := math.Inf(1)
	for i, center := range centers {
		if d := floats.Distance(point, center, 2); d < best {
			best = d
			nearest = i
		}
	}
	return nearest
}

func squaredDistance(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(values []float64) []float64 {
	c := make([]float64, len(values))
	copy(c, values)
	return c
}
