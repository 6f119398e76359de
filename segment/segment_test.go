package segment

import (
	"bytes"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	M "custseg/model"
	serviceDisk "custseg/services/disk"
)

func customer(age int, income, spend, recency, frequency float64) M.Customer {
	return M.Customer{Age: age, Income: income, TotalSpend: spend, Recency: recency, Frequency: frequency, Cluster: M.NoCluster}
}

// blobs returns three well separated groups of customers, size each.
func blobs(size int) []M.Customer {
	rng := rand.New(rand.NewSource(7))
	centers := [][5]float64{
		{25, 20000, 50, 80, 3},
		{45, 60000, 900, 20, 18},
		{70, 90000, 2000, 50, 28},
	}
	customers := make([]M.Customer, 0, 3*size)
	for i := 0; i < size; i++ {
		for _, c := range centers {
			customers = append(customers, customer(
				int(c[0])+rng.Intn(3),
				c[1]+rng.Float64()*1000,
				c[2]+rng.Float64()*20,
				c[3]+rng.Float64()*3,
				c[4]+float64(rng.Intn(2)),
			))
		}
	}
	return customers
}

func TestFitScaler(t *testing.T) {
	scaler := FitScaler([][M.NumFeatures]float64{
		{20, 10, 5, 1, 7},
		{40, 30, 5, 3, 7},
	})
	assert.Equal(t, [M.NumFeatures]float64{30, 20, 5, 2, 7}, scaler.Mean)
	assert.Equal(t, [M.NumFeatures]float64{10, 10, 1, 1, 1}, scaler.Scale)

	z := scaler.Transform([M.NumFeatures]float64{40, 10, 5, 2, 7})
	assert.Equal(t, []float64{1, -1, 0, 0, 0}, z)
	assert.Equal(t, [M.NumFeatures]float64{40, 10, 5, 2, 7}, scaler.InverseTransform(z))
}

func TestFitSeparatesBlobs(t *testing.T) {
	customers := blobs(30)
	model, labelled, err := Fit(customers, Config{K: 3, MaxIterations: 100, Seed: DefaultSeed})
	require.Nil(t, err)
	require.Len(t, labelled, len(customers))
	assert.Equal(t, 3, model.K)
	assert.Len(t, model.Centers, 3)

	// Customers i, i+3, i+6... come from the same blob.
	for i := 0; i < 3; i++ {
		for j := i; j < len(labelled); j += 3 {
			assert.Equal(t, labelled[i].Cluster, labelled[j].Cluster)
		}
	}
	assert.NotEqual(t, labelled[0].Cluster, labelled[1].Cluster)
	assert.NotEqual(t, labelled[1].Cluster, labelled[2].Cluster)
	assert.NotEqual(t, labelled[0].Cluster, labelled[2].Cluster)

	// Input batch is untouched.
	for _, c := range customers {
		assert.Equal(t, M.NoCluster, c.Cluster)
	}
}

func TestFitIsReproducible(t *testing.T) {
	customers := blobs(20)
	first, firstLabels, err := Fit(customers, DefaultConfig())
	require.Nil(t, err)
	second, secondLabels, err := Fit(customers, DefaultConfig())
	require.Nil(t, err)

	assert.Equal(t, first.Centers, second.Centers)
	assert.Equal(t, first.Scaler, second.Scaler)
	assert.Equal(t, firstLabels, secondLabels)
}

func TestFitErrors(t *testing.T) {
	_, _, err := Fit(blobs(2), Config{K: 0})
	assert.NotNil(t, err)

	_, _, err = Fit([]M.Customer{}, DefaultConfig())
	assert.NotNil(t, err)

	same := []M.Customer{customer(30, 1, 1, 1, 1), customer(30, 1, 1, 1, 1), customer(31, 1, 1, 1, 1)}
	_, _, err = Fit(same, Config{K: 3})
	assert.NotNil(t, err)

	_, labelled, err := Fit(same, Config{K: 2})
	assert.Nil(t, err)
	assert.Equal(t, labelled[0].Cluster, labelled[1].Cluster)
	assert.NotEqual(t, labelled[0].Cluster, labelled[2].Cluster)
}

func TestFitWithZeroVarianceFeature(t *testing.T) {
	customers := blobs(10)
	for i := range customers {
		customers[i].Recency = 30
	}
	model, labelled, err := Fit(customers, Config{K: 3, Seed: 1})
	require.Nil(t, err)
	assert.Equal(t, 1.0, model.Scaler.Scale[3])
	for _, center := range model.Centers {
		for _, value := range center {
			assert.False(t, math.IsNaN(value) || math.IsInf(value, 0))
		}
	}
	assert.Equal(t, labelled, model.Predict(customers))
}

func TestPredictMatchesFit(t *testing.T) {
	customers := blobs(25)
	model, labelled, err := Fit(customers, DefaultConfig())
	require.Nil(t, err)

	predicted := model.Predict(customers)
	assert.Equal(t, labelled, predicted)
	assert.Equal(t, predicted, model.Predict(customers))
}

func TestAssignBreaksTiesByLowestIndex(t *testing.T) {
	model := &Model{
		K:       2,
		Scaler:  Scaler{Scale: [M.NumFeatures]float64{1, 1, 1, 1, 1}},
		Centers: [][]float64{{1, 0, 0, 0, 0}, {-1, 0, 0, 0, 0}},
	}
	assert.Equal(t, 0, model.Assign([M.NumFeatures]float64{0, 0, 0, 0, 0}))
	assert.Equal(t, 1, model.Assign([M.NumFeatures]float64{-0.5, 0, 0, 0, 0}))

	model.Centers = [][]float64{{-1, 0, 0, 0, 0}, {1, 0, 0, 0, 0}}
	assert.Equal(t, 0, model.Assign([M.NumFeatures]float64{0, 0, 0, 0, 0}))
}

func TestUntrainedModel(t *testing.T) {
	customers := blobs(2)
	untrained := &Model{}
	assert.False(t, untrained.Trained())
	assert.Equal(t, M.NoCluster, untrained.Assign(customers[0].Features()))
	for _, c := range untrained.Predict(customers) {
		assert.Equal(t, M.NoCluster, c.Cluster)
	}

	partial := &Model{K: 2, Scaler: Scaler{Scale: [M.NumFeatures]float64{1, 1, 1, 1, 1}}, Centers: [][]float64{{0, 0, 0, 0, 0}}}
	assert.False(t, partial.Trained())

	registry := NewRegistry()
	registry.Set(untrained, Manifest{Name: "empty"})
	_, err := registry.Predict(customers)
	assert.True(t, M.IsModelNotLoaded(err))
	_, _, err = registry.Model()
	assert.True(t, M.IsModelNotLoaded(err))
}

func TestRawCenters(t *testing.T) {
	model := &Model{
		K:       1,
		Scaler:  Scaler{Mean: [M.NumFeatures]float64{40, 50000, 600, 49, 12}, Scale: [M.NumFeatures]float64{10, 20000, 500, 29, 7}},
		Centers: [][]float64{{1, -1, 0, 0, 2}},
	}
	assert.Equal(t, [][M.NumFeatures]float64{{50, 30000, 600, 49, 26}}, model.RawCenters())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	customers := blobs(25)
	model, labelled, err := Fit(customers, DefaultConfig())
	require.Nil(t, err)

	store := NewStore(serviceDisk.New(t.TempDir()), "wine")
	saved, err := store.Save(model, len(customers))
	require.Nil(t, err)
	assert.NotEmpty(t, saved.Stamp)
	assert.Equal(t, len(customers), saved.NumRecords)

	loaded, manifest, err := store.Load()
	require.Nil(t, err)
	assert.Equal(t, saved.Stamp, manifest.Stamp)
	assert.Equal(t, model.Scaler, loaded.Scaler)
	assert.Equal(t, model.Centers, loaded.Centers)
	assert.Equal(t, labelled, loaded.Predict(customers))
}

func TestLoadFailures(t *testing.T) {
	diskDriver := serviceDisk.New(t.TempDir())
	store := NewStore(diskDriver, "wine")

	_, _, err := store.Load()
	require.NotNil(t, err)
	assert.True(t, M.IsPersistenceError(err))

	model, _, err := Fit(blobs(10), DefaultConfig())
	require.Nil(t, err)
	_, err = store.Save(model, 30)
	require.Nil(t, err)

	// Corrupt centers.
	path, name := diskDriver.GetModelCentersFilePathAndName("wine")
	require.Nil(t, diskDriver.Create(path, name, bytes.NewReader([]byte(`{"stamp":`))))
	_, _, err = store.Load()
	assert.True(t, M.IsPersistenceError(err))

	// Centers from another save.
	other := NewStore(diskDriver, "other")
	_, err = other.Save(model, 30)
	require.Nil(t, err)
	otherPath, otherName := diskDriver.GetModelCentersFilePathAndName("other")
	rc, err := diskDriver.Get(otherPath, otherName)
	require.Nil(t, err)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(rc)
	rc.Close()
	require.Nil(t, err)
	require.Nil(t, diskDriver.Create(path, name, bytes.NewReader(buf.Bytes())))
	_, _, err = store.Load()
	require.NotNil(t, err)
	assert.True(t, M.IsPersistenceError(err))
	assert.Contains(t, err.Error(), "does not match manifest")

	// Wrong dimensions.
	scalerPath, scalerName := diskDriver.GetModelScalerFilePathAndName("wine")
	manifestPath, manifestName := diskDriver.GetModelManifestFilePathAndName("wine")
	require.Nil(t, diskDriver.Create(manifestPath, manifestName, bytes.NewReader([]byte(
		`{"stamp":"s1","name":"wine","k":1,"features":["Age","Income","TotalSpend","Recency","Frequency"]}`))))
	require.Nil(t, diskDriver.Create(scalerPath, scalerName, bytes.NewReader([]byte(
		`{"stamp":"s1","mean":[0,0,0],"scale":[1,1,1]}`))))
	_, _, err = store.Load()
	assert.True(t, M.IsPersistenceError(err))
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	customers := blobs(10)

	_, err := registry.Predict(customers)
	assert.True(t, M.IsModelNotLoaded(err))
	_, _, err = registry.Model()
	assert.True(t, M.IsModelNotLoaded(err))

	_, err = registry.Load(NewStore(serviceDisk.New(t.TempDir()), "missing"))
	assert.True(t, M.IsPersistenceError(err))
	_, err = registry.Predict(customers)
	assert.True(t, M.IsModelNotLoaded(err))

	model, labelled, err := Fit(customers, DefaultConfig())
	require.Nil(t, err)
	store := NewStore(serviceDisk.New(t.TempDir()), "wine")
	saved, err := store.Save(model, len(customers))
	require.Nil(t, err)

	manifest, err := registry.Load(store)
	require.Nil(t, err)
	assert.Equal(t, saved.Stamp, manifest.Stamp)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			predicted, err := registry.Predict(customers)
			assert.Nil(t, err)
			assert.Equal(t, labelled, predicted)
		}()
	}
	wg.Wait()
}
