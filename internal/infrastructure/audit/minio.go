package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/HSCode-Intelligence/internal/config"
	"github.com/turtacn/HSCode-Intelligence/internal/engine"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

// objectAPI is the slice of the MinIO client the sink uses; a test seam.
type objectAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader *bytes.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type minioPutter struct{ client *minio.Client }

func (m minioPutter) PutObject(ctx context.Context, bucket, object string, reader *bytes.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return m.client.PutObject(ctx, bucket, object, reader, size, opts)
}

// MinIOSink archives audit records as JSON objects, one per run, laid out by
// date so retention policies can expire whole prefixes.
type MinIOSink struct {
	api    objectAPI
	bucket string
	logger logging.Logger
}

// NewMinIOSink connects to the configured object store.
func NewMinIOSink(cfg config.MinIOConfig, log logging.Logger) (*MinIOSink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeAuditUnavailable, "failed to create object store client")
	}
	return &MinIOSink{api: minioPutter{client: client}, bucket: cfg.Bucket, logger: log}, nil
}

// newMinIOSinkWithAPI is a test seam.
func newMinIOSinkWithAPI(api objectAPI, bucket string, log logging.Logger) *MinIOSink {
	return &MinIOSink{api: api, bucket: bucket, logger: log}
}

// ObjectName returns the archival path for a record:
// runs/<yyyy>/<mm>/<dd>/<run_id>.json.
func ObjectName(rec *engine.AuditRecord) string {
	ts := rec.Timestamp.UTC()
	return fmt.Sprintf("runs/%04d/%02d/%02d/%s.json",
		ts.Year(), int(ts.Month()), ts.Day(), rec.RunID)
}

// Append archives one audit record.
func (s *MinIOSink) Append(ctx context.Context, rec *engine.AuditRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeAuditSerialize, "failed to encode audit record")
	}
	_, err = s.api.PutObject(ctx, s.bucket, ObjectName(rec),
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeAuditAppend, "failed to archive audit record")
	}
	s.logger.Debug("audit record archived",
		logging.String("run_id", rec.RunID),
		logging.String("object", ObjectName(rec)))
	return nil
}
