package filestore

import (
	"io"
)

// FileManager stores the artefacts of the pipeline: model state, dataset
// snapshots and exported reports. Paths are driver specific.
type FileManager interface {
	Create(dir, fileName string, reader io.ReadSeeker) error
	// Get opens a file for reading. Caller should close the returned io.ReadCloser.
	Get(dir, fileName string) (io.ReadCloser, error)
	GetModelDir(modelName string) string
	GetModelManifestFilePathAndName(modelName string) (string, string)
	GetModelScalerFilePathAndName(modelName string) (string, string)
	GetModelCentersFilePathAndName(modelName string) (string, string)
	GetSnapshotFilePathAndName(modelName string) (string, string)
	GetReportFilePathAndName(modelName, rangeKey string) (string, string)
}

const (
	ManifestFileName = "manifest.json"
	ScalerFileName   = "scaler.json"
	CentersFileName  = "centers.json"
	SnapshotFileName = "processed.tsv"
)
