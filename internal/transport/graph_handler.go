package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/graph"
	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/oracle"
	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/render"
	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

// GraphRoute is the path pattern of the ancestry endpoint.
const GraphRoute = "/api/v1/transaction/{txid}"

// GraphConfig bounds what a client may request.
type GraphConfig struct {
	DefaultDepth   int
	MaxDepth       int
	RequestTimeout time.Duration
}

// GraphHandler serves ancestry graphs as JSON documents.
type GraphHandler struct {
	builder GraphBuilder
	cfg     GraphConfig
	metrics HTTPMetrics
	logger  *zap.Logger
}

// NewGraphHandler returns a GraphHandler instance.
func NewGraphHandler(builder GraphBuilder, cfg GraphConfig, metrics HTTPMetrics, logger *zap.Logger) *GraphHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphHandler{
		builder: builder,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// Register mounts the handler on the gateway mux.
func (h *GraphHandler) Register(mux *gwruntime.ServeMux) error {
	return mux.HandlePath(http.MethodGet, GraphRoute, h.ServeGraph)
}

// ServeGraph handles GET /api/v1/transaction/{txid}?depth=N.
func (h *GraphHandler) ServeGraph(w http.ResponseWriter, r *http.Request, params map[string]string) {
	started := time.Now()
	code := http.StatusOK
	defer func() {
		if h.metrics != nil {
			h.metrics.ObserveRequest(GraphRoute, code, started)
		}
	}()

	txid, err := oracle.NormalizeTxID(params["txid"])
	if err != nil {
		code = writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	depth, err := h.parseDepth(r.URL.Query().Get("depth"))
	if err != nil {
		code = writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if h.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.RequestTimeout)
		defer cancel()
	}

	logger := h.logger.With(zap.String("txid", txid), zap.Int("depth", depth))
	g, err := h.builder.Build(ctx, txid, depth)
	if err != nil {
		status, msg := statusForError(err)
		if status >= http.StatusInternalServerError {
			logger.Error("build ancestry graph", zap.Int("status", status), zap.Error(err))
		} else {
			logger.Info("build ancestry graph", zap.Int("status", status), zap.Error(err))
		}
		code = writeError(w, status, msg)
		return
	}

	code = writeJSON(w, http.StatusOK, render.NewDocument(g))
}

func (h *GraphHandler) parseDepth(raw string) (int, error) {
	if raw == "" {
		return h.cfg.DefaultDepth, nil
	}
	depth, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("depth must be an integer, got %q", raw)
	}
	if depth < 0 {
		return 0, errors.New("depth must be non-negative")
	}
	if depth > h.cfg.MaxDepth {
		return 0, fmt.Errorf("depth must not exceed %d", h.cfg.MaxDepth)
	}
	return depth, nil
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, graph.ErrRootNotFound):
		return http.StatusNotFound, "transaction not found"
	case errors.Is(err, graph.ErrInvalidDepth):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, graph.ErrBudgetExceeded):
		return http.StatusUnprocessableEntity, "ancestry graph too large, try a smaller depth"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timed out building ancestry graph"
	default:
		return http.StatusInternalServerError, "failed to build ancestry graph"
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) int {
	return writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
	return status
}
