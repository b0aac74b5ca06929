package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/hushmap/hushmap/internal/metrics"
	"github.com/hushmap/hushmap/internal/validate"
	"github.com/hushmap/hushmap/pkg/logging"
	"github.com/hushmap/hushmap/pkg/telemetry"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC error
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MethodHandler is a function that handles a JSON-RPC method
type MethodHandler func(ctx *gin.Context, params json.RawMessage) (interface{}, error)

// JSONRPCHandler handles JSON-RPC requests
type JSONRPCHandler struct {
	methods   map[string]MethodHandler
	validator *validate.Validator
	logger    *zap.Logger
}

// NewJSONRPCHandler creates a new JSON-RPC handler. A nil validator skips schema checks.
func NewJSONRPCHandler(validator *validate.Validator) *JSONRPCHandler {
	return &JSONRPCHandler{
		methods:   make(map[string]MethodHandler),
		validator: validator,
		logger:    logging.WithComponent("jsonrpc"),
	}
}

// RegisterMethod registers a method handler
func (h *JSONRPCHandler) RegisterMethod(method string, handler MethodHandler) {
	h.methods[method] = handler
}

// Handle handles a JSON-RPC request
func (h *JSONRPCHandler) Handle(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "jsonrpc.handle")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req JSONRPCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, nil, ErrParseError, "Parse error", err)
		return
	}

	// Validate JSON-RPC version
	if req.JSONRPC != "2.0" || req.Method == "" {
		h.sendError(c, req.ID, ErrInvalidRequest, "Invalid Request", fmt.Errorf("invalid jsonrpc envelope"))
		return
	}
	span.SetAttributes(attribute.String("rpc.method", req.Method))

	handler, ok := h.methods[req.Method]
	if !ok {
		h.sendError(c, req.ID, ErrMethodNotFound, "Method not found", fmt.Errorf("method %s not found", req.Method))
		return
	}

	start := time.Now()
	result, err := h.call(c, req, handler)
	m := metrics.Get()
	m.RPCRequestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	m.RPCRequestTotal.WithLabelValues(req.Method, metrics.Status(err)).Inc()

	if err != nil {
		telemetry.RecordError(span, err)
		code, message := classify(err)
		h.sendError(c, req.ID, code, message, err)
		return
	}

	h.sendResponse(c, req.ID, result)
}

func (h *JSONRPCHandler) call(c *gin.Context, req JSONRPCRequest, handler MethodHandler) (interface{}, error) {
	if h.validator != nil {
		if err := h.validator.Validate(req.Method, req.Params); err != nil {
			return nil, err
		}
	}
	return handler(c, req.Params)
}

// sendResponse sends a successful JSON-RPC response
func (h *JSONRPCHandler) sendResponse(c *gin.Context, id interface{}, result interface{}) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	c.JSON(http.StatusOK, resp)
}

// sendError sends an error JSON-RPC response. Server errors carry no detail.
func (h *JSONRPCHandler) sendError(c *gin.Context, id interface{}, code int, message string, err error) {
	var data interface{}
	if err != nil {
		if code == ErrServerError || code == ErrInternalError {
			h.logger.Error("JSON-RPC error", zap.String("message", message), zap.Error(err))
		} else {
			h.logger.Debug("JSON-RPC error", zap.String("message", message), zap.Error(err))
			data = err.Error()
		}
	}

	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
	c.JSON(http.StatusOK, resp)
}
