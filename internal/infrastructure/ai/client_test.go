package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/HSCode-Intelligence/internal/config"
	"github.com/turtacn/HSCode-Intelligence/internal/engine"
	"github.com/turtacn/HSCode-Intelligence/internal/testutil"
	pkgerrors "github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "classifier", req["model"])

		w.WriteHeader(status)
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func testConfig(baseURL string) config.AIConfig {
	return config.AIConfig{
		BaseURL:   baseURL + "/v1",
		APIKey:    "test-key",
		Model:     "classifier",
		MaxTokens: 256,
	}
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(config.AIConfig{}, testutil.NewMockLogger())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeAINotConfigured))
}

func TestConsult_ParsesFencedOpinion(t *testing.T) {
	srv := chatServer(t, http.StatusOK,
		"```json\n{\"best_code\":\"84713000\",\"confidence\":90,\"reasoning\":\"portable computer\",\"eliminate\":[\"85171200\"]}\n```")
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), testutil.NewMockLogger())
	require.NoError(t, err)

	op, err := client.Consult(context.Background(), engine.ConsultRequest{
		RunID:       "run-1",
		Description: "laptop computer",
		Candidates: []engine.ConsultCandidate{
			{Code: "84713000", Description: "portable computers"},
			{Code: "85171200", Description: "telephones"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "84713000", op.BestCode)
	assert.Equal(t, []string{"85171200"}, op.Eliminate)
}

func TestConsult_MalformedReplyFails(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "I think it is heading 8471.")
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), testutil.NewMockLogger())
	require.NoError(t, err)

	_, err = client.Consult(context.Background(), engine.ConsultRequest{Description: "laptop"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeAIResponseInvalid))
}

func TestConsult_ServerErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), testutil.NewMockLogger())
	require.NoError(t, err)

	_, err = client.Consult(context.Background(), engine.ConsultRequest{Description: "laptop"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeAIRequestFailed))
}

func TestConsult_RateLimitMapsToQuotaExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), testutil.NewMockLogger())
	require.NoError(t, err)

	_, err = client.Consult(context.Background(), engine.ConsultRequest{Description: "laptop"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeAIQuotaExhausted))
}

func TestConsult_RetriesTransientServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `{"best_code":"84713000"}`}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 2
	client, err := NewClient(cfg, testutil.NewMockLogger())
	require.NoError(t, err)

	op, err := client.Consult(context.Background(), engine.ConsultRequest{Description: "laptop"})
	require.NoError(t, err)
	assert.Equal(t, "84713000", op.BestCode)
	assert.Equal(t, 2, calls)
}

func TestConsult_NoRetryOnMalformedEnvelope(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 2
	client, err := NewClient(cfg, testutil.NewMockLogger())
	require.NoError(t, err)

	_, err = client.Consult(context.Background(), engine.ConsultRequest{Description: "laptop"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeAIResponseInvalid))
	assert.Equal(t, 1, calls, "a reply that does not parse is not worth repeating")
}

func TestBuildConsultPrompt_RendersTrailingSteps(t *testing.T) {
	prompt := buildConsultPrompt(engine.ConsultRequest{
		Description: "laptop computer",
		Candidates: []engine.ConsultCandidate{
			{Code: "84713000", Description: "portable computers", Confidence: 70},
		},
		RecentSteps: []engine.ConsultStep{
			{Stage: "CompositeTieBreak", Rule: "gir_3c", Rationale: "84713000 occurs last in numerical order"},
		},
	})

	assert.Contains(t, prompt, "Remaining candidates:")
	assert.Contains(t, prompt, "How the rule engine narrowed the field:")
	assert.Contains(t, prompt, "[CompositeTieBreak/gir_3c] 84713000 occurs last in numerical order")
}

func TestChallenge_FillsCodeWhenOmitted(t *testing.T) {
	srv := chatServer(t, http.StatusOK,
		`{"counter_argument":"could be a composite machine under 8479","severity":"low"}`)
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), testutil.NewMockLogger())
	require.NoError(t, err)

	ch, err := client.Challenge(context.Background(), engine.ChallengeRequest{
		Code:        "84713000",
		Description: "portable computers",
		Product:     "laptop computer",
	})
	require.NoError(t, err)
	assert.Equal(t, "84713000", ch.Code)
	assert.Equal(t, "low", ch.Severity)
}
