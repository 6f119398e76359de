package gcstorage

import (
	"context"
	"custseg/filestore"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

var _ filestore.FileManager = (*GCSDriver)(nil)

type GCSDriver struct {
	client     *storage.Client
	BucketName string
}

func New(bucketName string) (*GCSDriver, error) {
	ctx := context.Background()
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	d := &GCSDriver{
		BucketName: bucketName,
		client:     client,
	}
	return d, nil
}

func (gcsd *GCSDriver) Create(dir, fileName string, reader io.ReadSeeker) error {
	ctx := context.Background()
	obj := gcsd.client.Bucket(gcsd.BucketName).Object(dir + fileName)
	w := obj.NewWriter(ctx)
	if _, err := io.Copy(w, reader); err != nil {
		w.Close()
		return err
	}
	err := w.Close()
	return err
}

func (gcsd *GCSDriver) Get(dir, fileName string) (io.ReadCloser, error) {
	ctx := context.Background()
	obj := gcsd.client.Bucket(gcsd.BucketName).Object(dir + fileName)
	rc, err := obj.NewReader(ctx)
	return rc, err
}

func (gcsd *GCSDriver) GetModelDir(modelName string) string {
	return fmt.Sprintf("models/%s/", modelName)
}

func (gcsd *GCSDriver) GetModelManifestFilePathAndName(modelName string) (string, string) {
	return gcsd.GetModelDir(modelName), filestore.ManifestFileName
}

func (gcsd *GCSDriver) GetModelScalerFilePathAndName(modelName string) (string, string) {
	return gcsd.GetModelDir(modelName), filestore.ScalerFileName
}

func (gcsd *GCSDriver) GetModelCentersFilePathAndName(modelName string) (string, string) {
	return gcsd.GetModelDir(modelName), filestore.CentersFileName
}

func (gcsd *GCSDriver) GetSnapshotFilePathAndName(modelName string) (string, string) {
	return fmt.Sprintf("snapshots/%s/", modelName), filestore.SnapshotFileName
}

func (gcsd *GCSDriver) GetReportFilePathAndName(modelName, rangeKey string) (string, string) {
	return fmt.Sprintf("reports/%s/", modelName), fmt.Sprintf("insights_%s.xlsx", rangeKey)
}
