package disk

import (
	"custseg/filestore"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

var _ filestore.FileManager = (*DiskDriver)(nil)

type DiskDriver struct {
	// This can be used as namespace
	// to differentiate files across multiple instances of DiskDriver
	// Analogus to bucket name
	baseDir string
}

func New(baseDir string) *DiskDriver {
	return &DiskDriver{baseDir: strings.TrimSuffix(baseDir, "/")}
}

func MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

// Create writes the file through a temporary file and a rename, so readers
// never observe a partially written file.
func (dd *DiskDriver) Create(path, fileName string, reader io.ReadSeeker) error {
	err := MkdirAll(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Errorln("Failed to create dir")
		return err
	}

	file, err := os.CreateTemp(path, "."+fileName+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := file.Name()
	if _, err = io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(tmpName)
		return err
	}
	if err = file.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, filepath.Join(path, fileName))
}

// Get opens a file in read only mode.
// Caller should take care of closing the returned io.ReadCloser.
func (dd *DiskDriver) Get(path, fileName string) (io.ReadCloser, error) {
	log.WithFields(log.Fields{
		"Path":     path,
		"FileName": fileName,
	}).Debug("DiskDriver Opening file")

	return os.OpenFile(filepath.Join(path, fileName), os.O_RDONLY, 0444)
}

func (dd *DiskDriver) GetModelDir(modelName string) string {
	return fmt.Sprintf("%s/models/%s/", dd.baseDir, modelName)
}

func (dd *DiskDriver) GetModelManifestFilePathAndName(modelName string) (string, string) {
	return dd.GetModelDir(modelName), filestore.ManifestFileName
}

func (dd *DiskDriver) GetModelScalerFilePathAndName(modelName string) (string, string) {
	return dd.GetModelDir(modelName), filestore.ScalerFileName
}

func (dd *DiskDriver) GetModelCentersFilePathAndName(modelName string) (string, string) {
	return dd.GetModelDir(modelName), filestore.CentersFileName
}

func (dd *DiskDriver) GetSnapshotFilePathAndName(modelName string) (string, string) {
	return fmt.Sprintf("%s/snapshots/%s/", dd.baseDir, modelName), filestore.SnapshotFileName
}

func (dd *DiskDriver) GetReportFilePathAndName(modelName, rangeKey string) (string, string) {
	return fmt.Sprintf("%s/reports/%s/", dd.baseDir, modelName), fmt.Sprintf("insights_%s.xlsx", rangeKey)
}
