// Package service serves insights over the working table: the labelled
// customer batch loaded once at startup.
package service

import (
	"bytes"
	"context"
	"encoding/json"

	cache "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"custseg/dataset"
	"custseg/datefilter"
	"custseg/filestore"
	"custseg/insights"
	M "custseg/model"
	"custseg/preprocess"
	"custseg/report"
	"custseg/segment"
)

const DefaultCacheSize = 128

// ErrRecommenderDisabled is returned for recommendations when no recommender is configured.
var ErrRecommenderDisabled = errors.New("recommender not configured")

// Recommender turns a batch summary into sales recommendations.
type Recommender interface {
	Recommend(ctx context.Context, summary insights.Summary) (string, error)
}

// SharedCache shares computed periods between serving instances. Values are
// only valid for the model stamp they were stored with.
type SharedCache interface {
	GetPeriod(modelStamp, rangeKey string) (string, error)
	SetPeriod(modelStamp, rangeKey, value string) error
}

// Period is the filtered view of one date range.
type Period struct {
	Key          string            `json:"period"`
	Empty        bool              `json:"empty"`
	NumCustomers int               `json:"customer_count"`
	Insights     insights.Insights `json:"insights"`
	Summary      insights.Summary  `json:"summary"`
}

type Status struct {
	NumCustomers int              `json:"customer_count"`
	Model        segment.Manifest `json:"model"`
}

type ClusterCenter struct {
	Cluster    int     `json:"cluster"`
	Age        float64 `json:"age"`
	Income     float64 `json:"income"`
	TotalSpend float64 `json:"total_spend"`
	Recency    float64 `json:"recency"`
	Frequency  float64 `json:"frequency"`
}

// Service is safe for concurrent use. The working table is never modified
// after New.
type Service struct {
	customers   []M.Customer
	registry    *segment.Registry
	fileManager filestore.FileManager
	modelName   string
	recommender Recommender

	periodCache *cache.Cache
	sharedCache SharedCache
}

// New builds a service over an already labelled working table. recommender may be nil.
func New(customers []M.Customer, registry *segment.Registry, fileManager filestore.FileManager,
	modelName string, cacheSize int, recommender Recommender) (*Service, error) {

	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	periodCache, err := cache.New(cacheSize)
	if err != nil {
		return nil, err
	}

	return &Service{
		customers:   customers,
		registry:    registry,
		fileManager: fileManager,
		modelName:   modelName,
		recommender: recommender,
		periodCache: periodCache,
	}, nil
}

// LoadWorkingTable reads the dataset, derives features and labels every
// customer with the model installed in registry.
func LoadWorkingTable(datasetPath string, referenceYear int, registry *segment.Registry) ([]M.Customer, error) {
	logCtx := log.WithFields(log.Fields{"dataset": datasetPath})

	table, err := dataset.ReadFile(datasetPath)
	if err != nil {
		return nil, err
	}

	customers, err := preprocess.Preprocess(table, referenceYear)
	if err != nil {
		return nil, err
	}
	logCtx.WithFields(log.Fields{"rows": table.Len(), "customers": len(customers)}).Info("Derived customer features.")

	labelled, err := registry.Predict(customers)
	if err != nil {
		return nil, errors.Wrap(err, "failed to label working table")
	}
	return labelled, nil
}

// SetSharedCache adds a second cache level behind the in-process one.
func (s *Service) SetSharedCache(sharedCache SharedCache) {
	s.sharedCache = sharedCache
}

func (s *Service) NumCustomers() int {
	return len(s.customers)
}

func (s *Service) Status() (Status, error) {
	_, manifest, err := s.registry.Model()
	if err != nil {
		return Status{}, err
	}
	return Status{NumCustomers: len(s.customers), Model: manifest}, nil
}

// Years returns the enrollment years offered by the date pickers.
func (s *Service) Years() []int {
	return datefilter.Years(s.customers)
}

// Clusters returns the model's cluster centers in raw units.
func (s *Service) Clusters() ([]ClusterCenter, error) {
	model, _, err := s.registry.Model()
	if err != nil {
		return nil, err
	}

	centers := make([]ClusterCenter, 0, model.K)
	for i, raw := range model.RawCenters() {
		centers = append(centers, ClusterCenter{
			Cluster:    i,
			Age:        raw[0],
			Income:     raw[1],
			TotalSpend: raw[2],
			Recency:    raw[3],
			Frequency:  raw[4],
		})
	}
	return centers, nil
}

func (s *Service) getPeriodFromCache(key string) (*Period, bool) {
	periodIface, ok := s.periodCache.Get(key)
	if !ok {
		return nil, false
	}
	period, ok := periodIface.(*Period)
	return period, ok
}

func (s *Service) modelStamp() string {
	_, manifest, err := s.registry.Model()
	if err != nil {
		return ""
	}
	return manifest.Stamp
}

func (s *Service) getPeriodFromSharedCache(stamp, key string) (*Period, bool) {
	if s.sharedCache == nil || stamp == "" {
		return nil, false
	}

	logCtx := log.WithFields(log.Fields{"period": key, "stamp": stamp})
	value, err := s.sharedCache.GetPeriod(stamp, key)
	if err != nil {
		logCtx.WithError(err).Debugln("[Service] period not in shared cache")
		return nil, false
	}

	var period Period
	if err := json.Unmarshal([]byte(value), &period); err != nil {
		logCtx.WithError(err).Error("Failed to decode cached period.")
		return nil, false
	}
	return &period, true
}

func (s *Service) putPeriodInSharedCache(stamp string, period *Period) {
	if s.sharedCache == nil || stamp == "" {
		return
	}

	logCtx := log.WithFields(log.Fields{"period": period.Key, "stamp": stamp})
	value, err := json.Marshal(period)
	if err != nil {
		logCtx.WithError(err).Error("Failed to encode period.")
		return
	}
	if err := s.sharedCache.SetPeriod(stamp, period.Key, string(value)); err != nil {
		logCtx.WithError(err).Error("Failed to put period in shared cache.")
	}
}

// Period filters the working table to r and computes its insights.
// Results are cached by range.
func (s *Service) Period(r datefilter.Range) *Period {
	key := r.Key()
	if period, ok := s.getPeriodFromCache(key); ok {
		return period
	}

	stamp := s.modelStamp()
	if period, ok := s.getPeriodFromSharedCache(stamp, key); ok {
		s.periodCache.Add(key, period)
		return period
	}

	log.WithFields(log.Fields{"period": key}).Debugln("[Service] computing period insights")

	filtered := r.Filter(s.customers)
	period := &Period{
		Key:          key,
		Empty:        len(filtered) == 0,
		NumCustomers: len(filtered),
		Insights:     insights.Compute(filtered),
		Summary:      insights.Summarize(filtered),
	}
	s.periodCache.Add(key, period)
	s.putPeriodInSharedCache(stamp, period)
	return period
}

// Export renders the period workbook and stores a copy under the model's
// report path.
func (s *Service) Export(r datefilter.Range) (*bytes.Buffer, error) {
	period := s.Period(r)
	buf, err := report.Write(period.Key, period.Summary, period.Insights)
	if err != nil {
		return nil, err
	}

	if s.fileManager != nil {
		path, name := s.fileManager.GetReportFilePathAndName(s.modelName, period.Key)
		if err := s.fileManager.Create(path, name, bytes.NewReader(buf.Bytes())); err != nil {
			log.WithFields(log.Fields{"path": path, "name": name}).WithError(err).Error("Failed to store insights report.")
		}
	}
	return buf, nil
}

// Recommend asks the recommender for sales advice on the period.
func (s *Service) Recommend(ctx context.Context, r datefilter.Range) (string, error) {
	if s.recommender == nil {
		return "", ErrRecommenderDisabled
	}
	period := s.Period(r)
	return s.recommender.Recommend(ctx, period.Summary)
}
