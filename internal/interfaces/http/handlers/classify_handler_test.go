package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/product"
	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/engine"
	msgkafka "github.com/turtacn/HSCode-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/HSCode-Intelligence/internal/testutil"
)

func productFixture(desc string) product.RawItem {
	return product.RawItem{Description: desc}
}

type fakeEnqueuer struct {
	msgs []msgkafka.ClassifyMessage
	err  error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, msg msgkafka.ClassifyMessage) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func classifyRouter(t *testing.T, enq Enqueuer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := testutil.NewFakeRuleStore()
	store.AddChapter(16, &tariff.ChapterNotes{
		Chapter:  "84",
		Preamble: "Machinery and mechanical appliances; automatic data processing machines",
		Keywords: []string{"laptop", "computer", "machinery"},
	})
	store.AddChapter(16, &tariff.ChapterNotes{
		Chapter:  "85",
		Preamble: "Electrical machinery and equipment; telephone sets",
		Keywords: []string{"telephone", "transmission"},
	})

	eng := engine.New(store, engine.WithLogger(testutil.NewMockLogger()))
	h := NewClassifyHandler(eng, nil, enq, nil)

	r := gin.New()
	r.POST("/api/v1/classify", h.Classify)
	return r
}

func postClassify(t *testing.T, r *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/classify", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestClassify_SynchronousRun(t *testing.T) {
	r := classifyRouter(t, nil)

	w := postClassify(t, r, ClassifyRequest{
		Product: productFixture("laptop computer"),
		Candidates: []tariff.PreClassifyCandidate{
			{Code: "84713000", Source: "pre-classify", Description: "Laptop computer, portable, weighing not more than 10 kg"},
			{Code: "85171200", Source: "pre-classify", Description: "Telephones for cellular networks"},
		},
	})

	require.Equal(t, http.StatusOK, w.Code)
	var res tariff.RunResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Survivors, 1)
	assert.Equal(t, "84713000", res.Survivors[0].Code)
	assert.NotEmpty(t, res.RunID)
	assert.NotEmpty(t, res.Steps)
}

func TestClassify_EmptyCandidatesReturnsDegenerateResult(t *testing.T) {
	r := classifyRouter(t, nil)

	w := postClassify(t, r, ClassifyRequest{Product: productFixture("laptop computer")})

	require.Equal(t, http.StatusOK, w.Code)
	var res tariff.RunResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Zero(t, res.SurvivorCount)
	assert.Empty(t, res.Steps)
}

func TestClassify_MalformedBody(t *testing.T) {
	r := classifyRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/classify", bytes.NewReader([]byte("{nope")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestClassify_ProductWithoutDescriptionRejected(t *testing.T) {
	r := classifyRouter(t, nil)

	w := postClassify(t, r, ClassifyRequest{
		Candidates: []tariff.PreClassifyCandidate{{Code: "84713000", Source: "pre-classify"}},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassify_AsyncEnqueues(t *testing.T) {
	enq := &fakeEnqueuer{}
	r := classifyRouter(t, enq)

	w := postClassify(t, r, ClassifyRequest{
		RequestID: "req-42",
		Product:   productFixture("laptop computer"),
		Candidates: []tariff.PreClassifyCandidate{
			{Code: "84713000", Source: "pre-classify"},
		},
		Async: true,
	})

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"req-42"`)
	require.Len(t, enq.msgs, 1)
	assert.Equal(t, "req-42", enq.msgs[0].RequestID)
}

func TestClassify_AsyncWithoutEnqueuerRejected(t *testing.T) {
	r := classifyRouter(t, nil)

	w := postClassify(t, r, ClassifyRequest{
		Product: productFixture("laptop computer"),
		Async:   true,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not enabled")
}

func TestClassify_AsyncEnqueueFailureSurfacesAsError(t *testing.T) {
	enq := &fakeEnqueuer{err: errors.New("broker down")}
	r := classifyRouter(t, enq)

	w := postClassify(t, r, ClassifyRequest{
		Product: productFixture("laptop computer"),
		Async:   true,
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
