package main

import (
	"flag"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	C "custseg/config"
	H "custseg/handler"
	"custseg/recommend"
	"custseg/segment"
	"custseg/service"
)

// Flags left unset keep the value from the config file, the environment or the defaults.
// ./app --env=development --config_filepath=config/custseg.yaml --dataset=data/marketing_campaign.csv --model_name=default --storage_driver=disk --storage_base_dir=/usr/local/var/custseg
func main() {

	configFilePath := flag.String("config_filepath", "", "YAML config file")
	env := flag.String("env", "", "")
	port := flag.Int("port", 0, "")
	datasetPath := flag.String("dataset", "", "Tab separated customer dataset")
	referenceYear := flag.Int("reference_year", 0, "Year ages are computed against")
	modelName := flag.String("model_name", "", "")

	storageDriver := flag.String("storage_driver", "", "disk, gcs or s3")
	storageBaseDir := flag.String("storage_base_dir", "", "")
	storageBucket := flag.String("storage_bucket", "", "")
	storageRegion := flag.String("storage_region", "", "")

	cacheSize := flag.Int("cache_size", 0, "Number of date ranges kept in the insights cache")
	redisHost := flag.String("redis_host", "", "Shared insights cache, disabled when empty")
	redisPort := flag.Int("redis_port", 0, "")

	recommenderURL := flag.String("recommender_url", "", "")
	recommenderAPIKey := flag.String("recommender_api_key", "", "Recommendations are disabled without a key")
	recommenderModel := flag.String("recommender_model", "", "")

	sentryDSN := flag.String("sentry_dsn", "", "Sentry DSN")
	logLevel := flag.String("log_level", "", "")
	flag.Parse()

	flagConfig := &C.Configuration{
		Env:           *env,
		Port:          *port,
		DatasetPath:   *datasetPath,
		ReferenceYear: *referenceYear,
		ModelName:     *modelName,
		Storage: C.StorageConfig{
			Driver:  *storageDriver,
			BaseDir: *storageBaseDir,
			Bucket:  *storageBucket,
			Region:  *storageRegion,
		},
		CacheSize: *cacheSize,
		Redis: C.RedisConfig{
			Host: *redisHost,
			Port: *redisPort,
		},
		Recommender: C.RecommenderConfig{
			URL:    *recommenderURL,
			APIKey: *recommenderAPIKey,
			Model:  *recommenderModel,
		},
		SentryDSN: *sentryDSN,
		LogLevel:  *logLevel,
	}

	err := C.Init(*configFilePath, flagConfig)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize.")
		return
	}
	defer C.SafeFlushSentryHook()
	config := C.GetConfig()

	logCtx := log.WithFields(log.Fields{"model_name": config.ModelName, "dataset": config.DatasetPath})

	fileManager, err := config.NewFileManager()
	if err != nil {
		logCtx.WithError(err).Fatal("Failed to initialize storage.")
		return
	}

	registry := segment.NewRegistry()
	manifest, err := registry.Load(segment.NewStore(fileManager, config.ModelName))
	if err != nil {
		logCtx.WithError(err).Fatal("Failed to load segmentation model. Run the training job first.")
		return
	}
	logCtx.WithField("manifest", manifest.String()).Info("Loaded segmentation model.")

	customers, err := service.LoadWorkingTable(config.DatasetPath, config.ReferenceYear, registry)
	if err != nil {
		logCtx.WithError(err).Fatal("Failed to load working table.")
		return
	}

	var recommender service.Recommender
	if config.Recommender.APIKey != "" {
		recommender = recommend.NewClient(config.RecommendConfig())
	} else {
		logCtx.Warn("No recommender api key. Recommendations disabled.")
	}

	svc, err := service.New(customers, registry, fileManager, config.ModelName, config.CacheSize, recommender)
	if err != nil {
		logCtx.WithError(err).Fatal("Failed to create insights service.")
		return
	}

	if config.RedisEnabled() {
		svc.SetSharedCache(config.NewSharedCache())
		logCtx.WithFields(log.Fields{"redis_host": config.Redis.Host, "redis_port": config.Redis.Port}).Info("Using shared insights cache.")
	}

	if !C.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	H.InitRoutes(r, svc)

	logCtx.WithFields(log.Fields{"port": config.Port, "customers": svc.NumCustomers()}).Info("Serving insights.")
	if err := r.Run(":" + strconv.Itoa(config.Port)); err != nil {
		log.WithError(err).Error("Server stopped.")
	}
}
