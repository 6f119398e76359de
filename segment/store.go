package segment

import (
	"bytes"
	"custseg/filestore"
	M "custseg/model"
	U "custseg/util"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/xid"
)

// Manifest describes a persisted model. It is written after the scaler and
// centers blobs, all three carrying the same stamp.
type Manifest struct {
	Stamp      string    `json:"stamp"`
	Name       string    `json:"name"`
	K          int       `json:"k"`
	Features   []string  `json:"features"`
	Iterations int       `json:"iterations"`
	NumRecords int       `json:"num_records"`
	TrainedAt  time.Time `json:"trained_at"`
}

type scalerState struct {
	Stamp    string    `json:"stamp"`
	Features []string  `json:"features"`
	Mean     []float64 `json:"mean"`
	Scale    []float64 `json:"scale"`
}

type centersState struct {
	Stamp   string      `json:"stamp"`
	K       int         `json:"k"`
	Centers [][]float64 `json:"centers"`
}

// Store saves and loads a named model through a FileManager.
type Store struct {
	fileManager filestore.FileManager
	name        string
}

func NewStore(fileManager filestore.FileManager, name string) *Store {
	return &Store{fileManager: fileManager, name: name}
}

func (s *Store) Name() string {
	return s.name
}

// Save persists the model. numRecords is the size of the training batch.
func (s *Store) Save(model *Model, numRecords int) (Manifest, error) {
	manifest := Manifest{
		Stamp:      xid.New().String(),
		Name:       s.name,
		K:          model.K,
		Features:   M.FeatureNames[:],
		Iterations: model.Iterations,
		NumRecords: numRecords,
		TrainedAt:  U.TimeNowZ(),
	}

	scaler := scalerState{
		Stamp:    manifest.Stamp,
		Features: M.FeatureNames[:],
		Mean:     model.Scaler.Mean[:],
		Scale:    model.Scaler.Scale[:],
	}
	path, name := s.fileManager.GetModelScalerFilePathAndName(s.name)
	if err := s.write(path, name, scaler); err != nil {
		return Manifest{}, err
	}

	centers := centersState{Stamp: manifest.Stamp, K: model.K, Centers: model.Centers}
	path, name = s.fileManager.GetModelCentersFilePathAndName(s.name)
	if err := s.write(path, name, centers); err != nil {
		return Manifest{}, err
	}

	path, name = s.fileManager.GetModelManifestFilePathAndName(s.name)
	if err := s.write(path, name, manifest); err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}

func (s *Store) write(path, name string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return &M.PersistenceError{Op: "save", Path: path + name, Err: err}
	}
	if err := s.fileManager.Create(path, name, bytes.NewReader(raw)); err != nil {
		return &M.PersistenceError{Op: "save", Path: path + name, Err: err}
	}
	return nil
}

func (s *Store) read(path, name string, value interface{}) error {
	rc, err := s.fileManager.Get(path, name)
	if err != nil {
		return &M.PersistenceError{Op: "load", Path: path + name, Err: err}
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return &M.PersistenceError{Op: "load", Path: path + name, Err: err}
	}
	if err := json.Unmarshal(raw, value); err != nil {
		return &M.PersistenceError{Op: "load", Path: path + name, Err: err}
	}
	return nil
}

// Load restores the model last saved under the store's name.
func (s *Store) Load() (*Model, Manifest, error) {
	var manifest Manifest
	manifestPath, manifestName := s.fileManager.GetModelManifestFilePathAndName(s.name)
	if err := s.read(manifestPath, manifestName, &manifest); err != nil {
		return nil, Manifest{}, err
	}
	invalid := func(path, name, format string, args ...interface{}) error {
		return &M.PersistenceError{Op: "load", Path: path + name, Err: errors.Errorf(format, args...)}
	}
	if manifest.Stamp == "" || manifest.K < 1 || len(manifest.Features) != M.NumFeatures {
		return nil, Manifest{}, invalid(manifestPath, manifestName, "invalid manifest")
	}

	var scaler scalerState
	path, name := s.fileManager.GetModelScalerFilePathAndName(s.name)
	if err := s.read(path, name, &scaler); err != nil {
		return nil, Manifest{}, err
	}
	if scaler.Stamp != manifest.Stamp {
		return nil, Manifest{}, invalid(path, name, "stamp %q does not match manifest %q", scaler.Stamp, manifest.Stamp)
	}
	if len(scaler.Mean) != M.NumFeatures || len(scaler.Scale) != M.NumFeatures {
		return nil, Manifest{}, invalid(path, name, "expected %d features", M.NumFeatures)
	}

	model := &Model{K: manifest.K, Iterations: manifest.Iterations}
	copy(model.Scaler.Mean[:], scaler.Mean)
	copy(model.Scaler.Scale[:], scaler.Scale)
	if !model.Scaler.valid() {
		return nil, Manifest{}, invalid(path, name, "non finite or zero scale")
	}

	var centers centersState
	path, name = s.fileManager.GetModelCentersFilePathAndName(s.name)
	if err := s.read(path, name, &centers); err != nil {
		return nil, Manifest{}, err
	}
	if centers.Stamp != manifest.Stamp {
		return nil, Manifest{}, invalid(path, name, "stamp %q does not match manifest %q", centers.Stamp, manifest.Stamp)
	}
	if centers.K != manifest.K || len(centers.Centers) != manifest.K {
		return nil, Manifest{}, invalid(path, name, "expected %d centers, found %d", manifest.K, len(centers.Centers))
	}
	for i, center := range centers.Centers {
		if len(center) != M.NumFeatures {
			return nil, Manifest{}, invalid(path, name, "center %d has %d features", i, len(center))
		}
		for _, value := range center {
			if !isFinite(value) {
				return nil, Manifest{}, invalid(path, name, "center %d is not finite", i)
			}
		}
	}
	model.Centers = centers.Centers

	return model, manifest, nil
}

func (m Manifest) String() string {
	return fmt.Sprintf("%s@%s(k=%d)", m.Name, m.Stamp, m.K)
}
