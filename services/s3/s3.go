package s3

import (
	"custseg/filestore"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	log "github.com/sirupsen/logrus"
)

var _ filestore.FileManager = (*S3Driver)(nil)

type S3Driver struct {
	s3         *s3.S3
	BucketName string
	Region     string
}

func New(bucketName, region string) (*S3Driver, error) {
	sess, err := session.NewSession(aws.NewConfig().WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &S3Driver{s3: s3.New(sess), BucketName: bucketName, Region: region}, nil
}

func (sd *S3Driver) Create(dir, fileName string, reader io.ReadSeeker) error {
	log.WithFields(log.Fields{
		"Dir":        dir,
		"FileName":   fileName,
		"BucketName": sd.BucketName,
		"Region":     sd.Region,
	}).Debug("S3Driver Creating file")

	input := &s3.PutObjectInput{
		Bucket: aws.String(sd.BucketName),
		Body:   reader,
		Key:    aws.String(sd.key(dir, fileName)),
	}
	_, err := sd.s3.PutObject(input)
	return err
}

func (sd *S3Driver) Get(dir, fileName string) (io.ReadCloser, error) {
	input := s3.GetObjectInput{
		Bucket: aws.String(sd.BucketName),
		Key:    aws.String(sd.key(dir, fileName)),
	}
	op, err := sd.s3.GetObject(&input)
	if err != nil {
		return nil, err
	}
	return op.Body, nil
}

func (sd *S3Driver) key(dir, fileName string) string {
	return dir + fileName
}

func (sd *S3Driver) GetModelDir(modelName string) string {
	return fmt.Sprintf("models/%s/", modelName)
}

func (sd *S3Driver) GetModelManifestFilePathAndName(modelName string) (string, string) {
	return sd.GetModelDir(modelName), filestore.ManifestFileName
}

func (sd *S3Driver) GetModelScalerFilePathAndName(modelName string) (string, string) {
	return sd.GetModelDir(modelName), filestore.ScalerFileName
}

func (sd *S3Driver) GetModelCentersFilePathAndName(modelName string) (string, string) {
	return sd.GetModelDir(modelName), filestore.CentersFileName
}

func (sd *S3Driver) GetSnapshotFilePathAndName(modelName string) (string, string) {
	return fmt.Sprintf("snapshots/%s/", modelName), filestore.SnapshotFileName
}

func (sd *S3Driver) GetReportFilePathAndName(modelName, rangeKey string) (string, string) {
	return fmt.Sprintf("reports/%s/", modelName), fmt.Sprintf("insights_%s.xlsx", rangeKey)
}
