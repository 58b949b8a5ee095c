package server

import (
	"encoding/json"
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-errors/errors"
	"github.com/minvws/greenpass-hcert/common"
	"github.com/minvws/greenpass-hcert/holder"
	"log/slog"
	"net/http"
	"strings"
)

const DEFAULT_MAX_REQUEST_SIZE = 64 * 1024

type Configuration struct {
	ListenAddress string
	ListenPort    string

	InflateLimit   int64
	MaxRequestSize int64
}

type server struct {
	config *Configuration
	holder *holder.Holder
	logger *slog.Logger
}

type decodeRequest struct {
	Credential string `json:"credential"`
}

type decodeResponse struct {
	HealthCertificate *common.HealthCert `json:"healthCertificate"`
	SignatureVerified bool               `json:"signatureVerified"`
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

func Run(config *Configuration) error {
	s := newServer(config, slog.Default())

	err := s.Serve()
	if err != nil {
		return errors.WrapPrefix(err, "Could not start server", 0)
	}

	return nil
}

func newServer(config *Configuration, logger *slog.Logger) *server {
	var opts []holder.Option
	if config.InflateLimit > 0 {
		opts = append(opts, holder.WithInflateLimit(config.InflateLimit))
	}

	return &server{
		config: config,
		holder: holder.New(opts...),
		logger: logger,
	}
}

func (s *server) Serve() error {
	addr := fmt.Sprintf("%s:%s", s.config.ListenAddress, s.config.ListenPort)
	s.logger.Info("Starting decode server", "address", addr)

	handler := s.buildHandler()
	err := http.ListenAndServe(addr, handler)
	if err != nil {
		return errors.WrapPrefix(err, "Could not start listening", 0)
	}

	return nil
}

func (s *server) buildHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/decode", s.handleDecode)

	return r
}

func (s *server) maxRequestSize() int64 {
	if s.config.MaxRequestSize > 0 {
		return s.config.MaxRequestSize
	}

	return DEFAULT_MAX_REQUEST_SIZE
}

func (s *server) handleDecode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxRequestSize())

	req := &decodeRequest{}
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		s.logger.WarnContext(ctx, "Invalid decode request", "request_id", requestID, "error", err.Error())
		writeJSON(w, http.StatusBadRequest, &errorResponse{Error: "Could not JSON unmarshal decode request"})
		return
	}

	credential := strings.Trim(req.Credential, "\r\n\t")
	if credential == "" {
		writeJSON(w, http.StatusBadRequest, &errorResponse{Error: "No credential given"})
		return
	}

	hcert, err := s.holder.ReadQREncoded([]byte(credential))
	if err != nil {
		s.logger.InfoContext(ctx, "Could not decode credential", "request_id", requestID, "error", err.Error())
		writeJSON(w, http.StatusUnprocessableEntity, decodeFailure(err))
		return
	}

	s.logger.DebugContext(ctx, "Decoded credential", "request_id", requestID, "passes", len(hcert.Passes))
	writeJSON(w, http.StatusOK, &decodeResponse{HealthCertificate: hcert})
}

func decodeFailure(err error) *errorResponse {
	res := &errorResponse{Error: err.Error()}
	if stage, ok := common.StageOf(err); ok {
		res.Stage = string(stage)
	}
	if kind := common.KindOf(err); kind != nil {
		res.Kind = kind.String()
	}

	return res
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	responseJson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Could not JSON marshal response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(responseJson)
}
