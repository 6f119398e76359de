package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	C "custseg/config"
	"custseg/dataset"
	"custseg/preprocess"
	"custseg/segment"
)

// go run run_train_segments.go --env=development --dataset=../../data/marketing_campaign.csv --model_name=default --num_clusters=4 --storage_driver=disk --storage_base_dir=/usr/local/var/custseg
func main() {

	configFilePath := flag.String("config_filepath", "", "YAML config file")
	env := flag.String("env", "", "")
	datasetPath := flag.String("dataset", "", "Tab separated customer dataset")
	referenceYear := flag.Int("reference_year", 0, "Year ages are computed against")
	modelName := flag.String("model_name", "", "")

	numClusters := flag.Int("num_clusters", 0, "")
	maxIterations := flag.Int("max_iterations", 0, "")
	seed := flag.Int64("seed", 0, "")

	storageDriver := flag.String("storage_driver", "", "disk, gcs or s3")
	storageBaseDir := flag.String("storage_base_dir", "", "")
	storageBucket := flag.String("storage_bucket", "", "")
	storageRegion := flag.String("storage_region", "", "")

	writeSnapshot := flag.Bool("write_snapshot", true, "Write the labelled dataset next to the model")
	sentryDSN := flag.String("sentry_dsn", "", "Sentry DSN")
	flag.Parse()

	flagConfig := &C.Configuration{
		Env:           *env,
		DatasetPath:   *datasetPath,
		ReferenceYear: *referenceYear,
		ModelName:     *modelName,
		Segmentation: C.SegmentationConfig{
			NumClusters:   *numClusters,
			MaxIterations: *maxIterations,
			Seed:          *seed,
		},
		Storage: C.StorageConfig{
			Driver:  *storageDriver,
			BaseDir: *storageBaseDir,
			Bucket:  *storageBucket,
			Region:  *storageRegion,
		},
		SentryDSN: *sentryDSN,
	}

	err := C.Init(*configFilePath, flagConfig)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize.")
		os.Exit(1)
	}
	defer C.SafeFlushSentryHook()

	if err := train(C.GetConfig(), *writeSnapshot); err != nil {
		log.WithError(err).Error("Training failed.")
		C.SafeFlushSentryHook()
		os.Exit(1)
	}
}

func train(config *C.Configuration, writeSnapshot bool) error {
	logCtx := log.WithFields(log.Fields{
		"dataset":      config.DatasetPath,
		"model_name":   config.ModelName,
		"num_clusters": config.Segmentation.NumClusters,
	})

	fileManager, err := config.NewFileManager()
	if err != nil {
		return err
	}

	table, err := dataset.ReadFile(config.DatasetPath)
	if err != nil {
		return err
	}
	customers, err := preprocess.Preprocess(table, config.ReferenceYear)
	if err != nil {
		return err
	}
	logCtx.WithFields(log.Fields{"rows": table.Len(), "customers": len(customers)}).Info("Derived customer features.")

	model, labelled, err := segment.Fit(customers, config.SegmentConfig())
	if err != nil {
		return err
	}

	sizes := make(map[string]int)
	for _, c := range labelled {
		sizes[fmt.Sprintf("cluster_%d", c.Cluster)]++
	}
	logCtx.WithFields(log.Fields{"iterations": model.Iterations, "sizes": sizes}).Info("Fitted segmentation model.")

	manifest, err := segment.NewStore(fileManager, config.ModelName).Save(model, len(customers))
	if err != nil {
		return err
	}
	logCtx.WithField("manifest", manifest.String()).Info("Saved segmentation model.")

	if !writeSnapshot {
		return nil
	}
	var buf bytes.Buffer
	if err := dataset.WriteSnapshot(&buf, labelled, table.ExtraColumns()); err != nil {
		return err
	}
	path, name := fileManager.GetSnapshotFilePathAndName(config.ModelName)
	if err := fileManager.Create(path, name, bytes.NewReader(buf.Bytes())); err != nil {
		return err
	}
	logCtx.WithFields(log.Fields{"path": path, "name": name}).Info("Wrote labelled dataset snapshot.")
	return nil
}
