package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/product"
	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/engine"
	msgkafka "github.com/turtacn/HSCode-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HSCode-Intelligence/internal/nlp"
)

// Enqueuer publishes a classification request for asynchronous processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg msgkafka.ClassifyMessage) error
}

// ClassifyRequest is the request body of POST /api/v1/classify.
type ClassifyRequest struct {
	RequestID  string                        `json:"request_id"`
	Product    product.RawItem               `json:"product"`
	Candidates []tariff.PreClassifyCandidate `json:"candidates"`

	// Async enqueues the request onto the worker topic instead of running
	// the pipeline inline; the result is then delivered via the audit trail.
	Async bool `json:"async"`
}

// ClassifyHandler serves synchronous and asynchronous classification.
type ClassifyHandler struct {
	engine   *engine.Engine
	tok      *nlp.Tokenizer
	enqueuer Enqueuer
	logger   logging.Logger
}

// NewClassifyHandler creates a ClassifyHandler.  enqueuer may be nil, in
// which case async requests are rejected.
func NewClassifyHandler(eng *engine.Engine, tok *nlp.Tokenizer, enqueuer Enqueuer, log logging.Logger) *ClassifyHandler {
	if tok == nil {
		tok = nlp.NewTokenizer()
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ClassifyHandler{engine: eng, tok: tok, enqueuer: enqueuer, logger: log.Named("classify")}
}

// Classify handles POST /api/v1/classify.
func (h *ClassifyHandler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	if req.Async {
		h.enqueue(c, req)
		return
	}

	info, err := product.NewInfo(req.Product, h.tok)
	if err != nil {
		respondError(c, err)
		return
	}
	cands := tariff.CandidatesFromPreClassify(tariff.PreClassifyResult{Candidates: req.Candidates})

	res, err := h.engine.Eliminate(c.Request.Context(), info, cands)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ClassifyHandler) enqueue(c *gin.Context, req ClassifyRequest) {
	if h.enqueuer == nil {
		respondBadRequest(c, "asynchronous classification is not enabled")
		return
	}
	err := h.enqueuer.Enqueue(c.Request.Context(), msgkafka.ClassifyMessage{
		RequestID:  req.RequestID,
		Product:    req.Product,
		Candidates: req.Candidates,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"request_id": req.RequestID,
		"status":     "queued",
	})
}
