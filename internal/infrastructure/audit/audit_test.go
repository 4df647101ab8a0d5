package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/HSCode-Intelligence/internal/engine"
	"github.com/turtacn/HSCode-Intelligence/internal/testutil"
	pkgerrors "github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

type fakePutter struct {
	objects map[string][]byte
	err     error
}

func (f *fakePutter) PutObject(ctx context.Context, bucket, object string, reader *bytes.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	data := make([]byte, size)
	if _, err := reader.Read(data); err != nil {
		return minio.UploadInfo{}, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[object] = data
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: size}, nil
}

func sampleRecord() *engine.AuditRecord {
	return &engine.AuditRecord{
		RunID:     "run-42",
		Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Product:   engine.AuditProduct{Description: "laptop computer"},
		Candidates: []engine.AuditCandidate{
			{Code: "84713000", Confidence: 60, Alive: true},
		},
		SurvivorCount: 1,
	}
}

func TestKafkaSink_PublishesKeyedByRunID(t *testing.T) {
	w := &fakeWriter{}
	sink := newKafkaSinkWithWriter(w, testutil.NewMockLogger())

	require.NoError(t, sink.Append(context.Background(), sampleRecord()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("run-42"), w.msgs[0].Key)

	var decoded engine.AuditRecord
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "run-42", decoded.RunID)
	assert.Equal(t, 1, decoded.SurvivorCount)
}

func TestKafkaSink_WriteFailure(t *testing.T) {
	w := &fakeWriter{err: pkgerrors.New(pkgerrors.ErrCodeServiceUnavailable, "broker down")}
	sink := newKafkaSinkWithWriter(w, testutil.NewMockLogger())

	err := sink.Append(context.Background(), sampleRecord())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeAuditAppend))
}

func TestMinIOSink_ArchivesByDate(t *testing.T) {
	putter := &fakePutter{}
	sink := newMinIOSinkWithAPI(putter, "hscode-audit", testutil.NewMockLogger())

	require.NoError(t, sink.Append(context.Background(), sampleRecord()))
	data, ok := putter.objects["runs/2026/03/14/run-42.json"]
	require.True(t, ok, "object path follows runs/yyyy/mm/dd/run_id.json")

	var decoded engine.AuditRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "laptop computer", decoded.Product.Description)
}

func TestMultiSink_DeliversToAllDespiteFailure(t *testing.T) {
	broken := &fakeWriter{err: pkgerrors.New(pkgerrors.ErrCodeServiceUnavailable, "broker down")}
	working := &fakePutter{}
	multi := NewMultiSink(testutil.NewMockLogger(),
		newKafkaSinkWithWriter(broken, testutil.NewMockLogger()),
		newMinIOSinkWithAPI(working, "hscode-audit", testutil.NewMockLogger()),
	)

	err := multi.Append(context.Background(), sampleRecord())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeAuditAppend))
	assert.Len(t, working.objects, 1, "healthy sink still receives the record")
}

func TestMultiSink_SkipsNilSinks(t *testing.T) {
	w := &fakeWriter{}
	multi := NewMultiSink(testutil.NewMockLogger(), nil,
		newKafkaSinkWithWriter(w, testutil.NewMockLogger()))

	require.NoError(t, multi.Append(context.Background(), sampleRecord()))
	assert.Len(t, w.msgs, 1)
}
