package config

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/imdario/mergo"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	cacheRedis "custseg/cache/redis"
	"custseg/filestore"
	M "custseg/model"
	"custseg/recommend"
	"custseg/segment"
	serviceDisk "custseg/services/disk"
	serviceGCS "custseg/services/gcstorage"
	serviceS3 "custseg/services/s3"
	U "custseg/util"
)

const DEVELOPMENT = "development"
const PRODUCTION = "production"

// EnvPrefix prefixes every environment variable read by the config, e.g. CUSTSEG_PORT.
const EnvPrefix = "CUSTSEG"

const (
	StorageDriverDisk = "disk"
	StorageDriverGCS  = "gcs"
	StorageDriverS3   = "s3"
)

var initiated bool = false

type SegmentationConfig struct {
	NumClusters   int   `yaml:"num_clusters" envconfig:"NUM_CLUSTERS"`
	MaxIterations int   `yaml:"max_iterations" envconfig:"MAX_ITERATIONS"`
	Seed          int64 `yaml:"seed" envconfig:"SEED"`
}

type StorageConfig struct {
	Driver  string `yaml:"driver" envconfig:"DRIVER"`
	BaseDir string `yaml:"base_dir" envconfig:"BASE_DIR"`
	Bucket  string `yaml:"bucket" envconfig:"BUCKET"`
	Region  string `yaml:"region" envconfig:"REGION"`
}

type RecommenderConfig struct {
	URL         string        `yaml:"url" envconfig:"URL"`
	APIKey      string        `yaml:"api_key" envconfig:"API_KEY"`
	Model       string        `yaml:"model" envconfig:"MODEL"`
	MaxTokens   int           `yaml:"max_tokens" envconfig:"MAX_TOKENS"`
	Temperature float64       `yaml:"temperature" envconfig:"TEMPERATURE"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

// RedisConfig enables the shared insights cache. An empty host disables it.
type RedisConfig struct {
	Host          string `yaml:"host" envconfig:"HOST"`
	Port          int    `yaml:"port" envconfig:"PORT"`
	ExpirySeconds int    `yaml:"expiry_seconds" envconfig:"EXPIRY_SECONDS"`
}

type Configuration struct {
	Env           string             `yaml:"env" envconfig:"ENV"`
	Port          int                `yaml:"port" envconfig:"PORT"`
	DatasetPath   string             `yaml:"dataset_path" envconfig:"DATASET_PATH"`
	ReferenceYear int                `yaml:"reference_year" envconfig:"REFERENCE_YEAR"`
	ModelName     string             `yaml:"model_name" envconfig:"MODEL_NAME"`
	Segmentation  SegmentationConfig `yaml:"segmentation" envconfig:"SEGMENTATION"`
	Storage       StorageConfig      `yaml:"storage" envconfig:"STORAGE"`
	CacheSize     int                `yaml:"cache_size" envconfig:"CACHE_SIZE"`
	Recommender   RecommenderConfig  `yaml:"recommender" envconfig:"RECOMMENDER"`
	Redis         RedisConfig        `yaml:"redis" envconfig:"REDIS"`
	SentryDSN     string             `yaml:"sentry_dsn" envconfig:"SENTRY_DSN"`
	LogLevel      string             `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

var configuration *Configuration = nil

// DefaultConfiguration is the base layer the file, environment and flags override.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		Env:           DEVELOPMENT,
		Port:          8080,
		DatasetPath:   "data/marketing_campaign.csv",
		ReferenceYear: M.DefaultReferenceYear,
		ModelName:     "default",
		Segmentation: SegmentationConfig{
			NumClusters:   segment.DefaultNumClusters,
			MaxIterations: segment.DefaultMaxIterations,
			Seed:          segment.DefaultSeed,
		},
		Storage: StorageConfig{
			Driver:  StorageDriverDisk,
			BaseDir: "models_store",
		},
		CacheSize: 128,
		Recommender: RecommenderConfig{
			URL:         recommend.DefaultURL,
			Model:       recommend.DefaultModel,
			MaxTokens:   recommend.DefaultMaxTokens,
			Temperature: recommend.DefaultTemperature,
			Timeout:     recommend.DefaultTimeout,
		},
		Redis: RedisConfig{
			Port:          6379,
			ExpirySeconds: 24 * 60 * 60,
		},
		LogLevel: "info",
	}
}

// LoadFile reads a YAML config file. Fields absent from the file are left zero.
func LoadFile(path string) (*Configuration, error) {
	configFileAbsPath, _ := filepath.Abs(path)
	logCtx := log.WithFields(log.Fields{"file": configFileAbsPath})

	raw, err := ioutil.ReadFile(configFileAbsPath)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load config")
		return nil, err
	}

	fileConfig := &Configuration{}
	if err := yaml.Unmarshal(raw, fileConfig); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal yaml")
		return nil, err
	}
	return fileConfig, nil
}

// LoadEnv reads the CUSTSEG_ prefixed environment variables.
func LoadEnv() (*Configuration, error) {
	envConfig := &Configuration{}
	if err := envconfig.Process(EnvPrefix, envConfig); err != nil {
		return nil, errors.Wrap(err, "failed to read environment")
	}
	return envConfig, nil
}

// Build layers the defaults, the config file (if configFilePath is set),
// the environment and the flag values, each overriding the non-zero values
// of the previous.
func Build(configFilePath string, flagConfig *Configuration) (*Configuration, error) {
	layers := make([]*Configuration, 0, 3)
	if configFilePath != "" {
		fileConfig, err := LoadFile(configFilePath)
		if err != nil {
			return nil, err
		}
		layers = append(layers, fileConfig)
	}

	envConfig, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	layers = append(layers, envConfig)

	if flagConfig != nil {
		layers = append(layers, flagConfig)
	}

	merged := DefaultConfiguration()
	for _, layer := range layers {
		if err := mergo.Merge(merged, layer, mergo.WithOverride); err != nil {
			return nil, errors.Wrap(err, "failed to merge config")
		}
	}
	return merged, nil
}

// Validate checks the values the pipeline cannot run with.
func (c *Configuration) Validate() error {
	if c.Segmentation.NumClusters < 1 {
		return fmt.Errorf("invalid num_clusters %d", c.Segmentation.NumClusters)
	}
	if c.Segmentation.MaxIterations < 1 {
		return fmt.Errorf("invalid max_iterations %d", c.Segmentation.MaxIterations)
	}
	if c.ModelName == "" {
		return errors.New("model_name is required")
	}
	if c.ReferenceYear < 1 {
		return fmt.Errorf("invalid reference_year %d", c.ReferenceYear)
	}
	switch c.Storage.Driver {
	case StorageDriverDisk:
		if c.Storage.BaseDir == "" {
			return errors.New("storage base_dir is required for the disk driver")
		}
	case StorageDriverGCS:
		if c.Storage.Bucket == "" {
			return errors.New("storage bucket is required for the gcs driver")
		}
	case StorageDriverS3:
		if c.Storage.Bucket == "" || c.Storage.Region == "" {
			return errors.New("storage bucket and region are required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.RedisEnabled() && (c.Redis.Port < 1 || c.Redis.ExpirySeconds < 0) {
		return fmt.Errorf("invalid redis port %d or expiry %d", c.Redis.Port, c.Redis.ExpirySeconds)
	}
	if _, err := log.ParseLevel(c.LogLevel); c.LogLevel != "" && err != nil {
		return errors.Wrap(err, "invalid log_level")
	}
	return nil
}

func initLogging() {
	// Log as JSON instead of the default ASCII formatter.
	log.SetFormatter(&log.JSONFormatter{})

	if level, err := log.ParseLevel(configuration.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if IsDevelopment() {
		log.SetLevel(log.DebugLevel)
	}
}

func initSentry() error {
	if configuration.SentryDSN == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         configuration.SentryDSN,
		Environment: configuration.Env,
	})
	if err != nil {
		return errors.Wrap(err, "failed to init sentry")
	}
	log.AddHook(&U.Hook{Hub: sentry.CurrentHub()})
	return nil
}

// Init builds, validates and installs the configuration, then sets up logging.
func Init(configFilePath string, flagConfig *Configuration) error {
	if initiated {
		return fmt.Errorf("Config already initialized")
	}
	conf, err := Build(configFilePath, flagConfig)
	if err != nil {
		return err
	}
	return InitConf(conf)
}

// InitConf installs an already built configuration.
func InitConf(conf *Configuration) error {
	if err := conf.Validate(); err != nil {
		return err
	}
	configuration = conf
	initLogging()
	if err := initSentry(); err != nil {
		return err
	}
	initiated = true
	log.WithFields(log.Fields{"env": conf.Env, "model_name": conf.ModelName,
		"storage_driver": conf.Storage.Driver}).Info("Config initialized")
	return nil
}

// SafeFlushSentryHook flushes buffered sentry events, waiting at most two seconds.
func SafeFlushSentryHook() {
	if configuration != nil && configuration.SentryDSN != "" {
		sentry.Flush(2 * time.Second)
	}
}

func GetConfig() *Configuration {
	return configuration
}

func IsDevelopment() bool {
	return (strings.Compare(configuration.Env, DEVELOPMENT) == 0)
}

// SegmentConfig returns the k-means settings.
func (c *Configuration) SegmentConfig() segment.Config {
	return segment.Config{
		K:             c.Segmentation.NumClusters,
		MaxIterations: c.Segmentation.MaxIterations,
		Seed:          c.Segmentation.Seed,
	}
}

func (c *Configuration) RecommendConfig() recommend.Config {
	return recommend.Config{
		URL:         c.Recommender.URL,
		APIKey:      c.Recommender.APIKey,
		Model:       c.Recommender.Model,
		MaxTokens:   c.Recommender.MaxTokens,
		Temperature: c.Recommender.Temperature,
		Timeout:     c.Recommender.Timeout,
	}
}

func (c *Configuration) RedisEnabled() bool {
	return c.Redis.Host != ""
}

// NewSharedCache connects the redis backed insights cache. Callers check
// RedisEnabled first.
func (c *Configuration) NewSharedCache() *cacheRedis.Cache {
	pool := cacheRedis.NewPool(c.Redis.Host, c.Redis.Port)
	return cacheRedis.New(pool, float64(c.Redis.ExpirySeconds))
}

// NewFileManager returns the storage driver named by the config.
func (c *Configuration) NewFileManager() (filestore.FileManager, error) {
	switch c.Storage.Driver {
	case StorageDriverDisk:
		return serviceDisk.New(c.Storage.BaseDir), nil
	case StorageDriverGCS:
		driver, err := serviceGCS.New(c.Storage.Bucket)
		if err != nil {
			return nil, err
		}
		return driver, nil
	case StorageDriverS3:
		driver, err := serviceS3.New(c.Storage.Bucket, c.Storage.Region)
		if err != nil {
			return nil, err
		}
		return driver, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
}
