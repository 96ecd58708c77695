// Package rpc implements the JSON-RPC 2.0 API server for the staking ledger.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Klingon-tech/winter-staking/config"
	"github.com/Klingon-tech/winter-staking/internal/host"
	klog "github.com/Klingon-tech/winter-staking/internal/log"
	"github.com/Klingon-tech/winter-staking/internal/metrics"
	"github.com/rs/zerolog"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// handlerFunc serves one JSON-RPC method.
type handlerFunc func(s *Server, req *Request) (interface{}, *Error)

// methods is the method table. Registered once; read-only afterwards.
var methods = map[string]handlerFunc{
	"staking_deposit":         (*Server).handleStakingDeposit,
	"staking_getStakedTokens": (*Server).handleStakingGetStakedTokens,
	"staking_listStakes":      (*Server).handleStakingListStakes,
	"staking_getConfig":       (*Server).handleStakingGetConfig,
	"epoch_getCurrent":        (*Server).handleEpochGetCurrent,
	"epoch_advance":           (*Server).handleEpochAdvance,
}

// Server is the JSON-RPC 2.0 HTTP server.
type Server struct {
	addr         string
	host         *host.Context
	metrics      *metrics.Metrics // nil = no /metrics endpoint
	manualEpochs bool             // epoch_advance enabled
	access       *accessControl

	mux    *http.ServeMux
	server *http.Server
	ln     net.Listener
	logger zerolog.Logger
}

// New creates an RPC server for h. The optional rpcCfg controls IP filtering
// and CORS; without it all IPs are allowed and CORS is off.
func New(addr string, h *host.Context, rpcCfg ...config.RPCConfig) *Server {
	var cfg config.RPCConfig
	if len(rpcCfg) > 0 {
		cfg = rpcCfg[0]
	}
	s := &Server{
		addr:   addr,
		host:   h,
		access: newAccessControl(cfg.AllowedIPs, cfg.CORSOrigins),
		mux:    http.NewServeMux(),
		logger: klog.RPC,
	}
	s.mux.Handle("/", s.access.wrap(http.HandlerFunc(s.serveRPC), true))
	s.server = &http.Server{
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// SetMetrics serves m at /metrics and counts requests per method.
// Must be called before Start.
func (s *Server) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
	s.mux.Handle("/metrics", s.access.wrap(m.Handler(), false))
}

// EnableEpochAdvance allows clients to drive the epoch clock through
// epoch_advance.
func (s *Server) EnableEpochAdvance(enabled bool) {
	s.manualEpochs = enabled
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("RPC server error")
		}
	}()
	return nil
}

// Addr returns the bound listener address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, errorResponse(nil, CodeInvalidRequest, "only POST method is allowed"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeJSON(w, errorResponse(nil, CodeParseError, "failed to read request body"))
		return
	}
	if len(body) > maxBodySize {
		writeJSON(w, errorResponse(nil, CodeInvalidRequest, "request body too large"))
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, errorResponse(nil, CodeParseError, "invalid JSON"))
		return
	}
	writeJSON(w, s.call(&req))
}

// call validates and dispatches one decoded request.
func (s *Server) call(req *Request) Response {
	if req.JSONRPC != "2.0" {
		return errorResponse(req.ID, CodeInvalidRequest, `jsonrpc must be "2.0"`)
	}
	handler, ok := methods[req.Method]
	if !ok {
		return errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
	s.metrics.ObserveRPC(req.Method)

	result, rpcErr := handler(s, req)
	if rpcErr != nil {
		s.logger.Debug().Str("method", req.Method).Int("code", rpcErr.Code).Msg(rpcErr.Message)
		return Response{JSONRPC: "2.0", Error: rpcErr, ID: req.ID}
	}
	return Response{JSONRPC: "2.0", Result: result, ID: req.ID}
}

func errorResponse(id interface{}, code int, message string) Response {
	return Response{JSONRPC: "2.0", Error: &Error{Code: code, Message: message}, ID: id}
}

func writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// hasParams reports whether the request carried a non-null params value.
func hasParams(req *Request) bool {
	p := bytes.TrimSpace(req.Params)
	return len(p) > 0 && !bytes.Equal(p, []byte("null"))
}

// parseParams decodes the request params into target. Unknown fields are
// rejected so a misspelled key fails loudly instead of defaulting to zero.
func parseParams(req *Request, target interface{}) *Error {
	if !hasParams(req) {
		return &Error{Code: CodeInvalidParams, Message: "params required"}
	}
	dec := json.NewDecoder(bytes.NewReader(req.Params))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}
