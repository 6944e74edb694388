// Package httpapi exposes validation and publishing over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"PublishGate/internal/domain"
	"PublishGate/internal/ports"
	"PublishGate/internal/validator"
)

const maxBodyBytes = 8 << 20

// Validator produces verdicts with and without the identifier registry.
type Validator interface {
	Validate(record domain.ContentRecord, policy validator.Policy) domain.Verdict
	ValidateWithRegistry(ctx context.Context, record domain.ContentRecord, policy validator.Policy) domain.Verdict
}

// Publisher runs the publish workflow over persisted records.
type Publisher interface {
	PublishByID(ctx context.Context, id string, opts domain.PublishOptions) (domain.PublishResult, error)
	Retry(ctx context.Context, id string, opts domain.PublishOptions) (domain.PublishResult, error)
	BulkPublishIDs(ctx context.Context, ids []string, opts domain.PublishOptions) domain.BulkResult
}

// Deps wires the server's collaborators.
type Deps struct {
	Validator Validator
	Publisher Publisher
	Content   ports.ContentRepository
	Policy    validator.Policy
	Gatherer  prometheus.Gatherer
	Logger    *slog.Logger
}

// Server serves the JSON API.
type Server struct {
	validator Validator
	publisher Publisher
	content   ports.ContentRepository
	policy    validator.Policy
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
}

// New builds a server. A nil Gatherer exposes the default Prometheus registry.
func New(deps Deps) *Server {
	s := &Server{
		validator: deps.Validator,
		publisher: deps.Publisher,
		content:   deps.Content,
		policy:    deps.Policy,
		gatherer:  deps.Gatherer,
		logger:    deps.Logger,
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Routes returns the chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/validate", s.validate)
		r.Post("/bulk-publish", s.bulkPublish)
		r.Route("/content/{id}", func(r chi.Router) {
			r.Post("/validate", s.validateStored)
			r.Post("/publish", s.publish)
			r.Post("/retry", s.retry)
		})
	})
	return r
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type validateRequest struct {
	Record *domain.ContentRecord `json:"record"`
	Policy json.RawMessage       `json:"policy"`
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Record == nil {
		writeError(w, http.StatusBadRequest, errors.New("record is required"))
		return
	}

	policy := s.policy
	if err := overlay(req.Policy, &policy); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("policy: %w", err))
		return
	}

	useRegistry, _ := strconv.ParseBool(r.URL.Query().Get("registry"))
	writeJSON(w, http.StatusOK, s.verdict(r.Context(), *req.Record, policy, useRegistry))
}

func (s *Server) validateStored(w http.ResponseWriter, r *http.Request) {
	if s.content == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no content repository configured"))
		return
	}
	record, err := s.content.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.verdict(r.Context(), record, s.policy, true))
}

func (s *Server) verdict(ctx context.Context, record domain.ContentRecord, policy validator.Policy, useRegistry bool) domain.Verdict {
	if useRegistry {
		return s.validator.ValidateWithRegistry(ctx, record, policy)
	}
	return s.validator.Validate(record, policy)
}

func (s *Server) publish(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, s.publisher.PublishByID)
}

func (s *Server) retry(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, s.publisher.Retry)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, run func(context.Context, string, domain.PublishOptions) (domain.PublishResult, error)) {
	opts, err := decodeOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := run(r.Context(), chi.URLParam(r, "id"), opts)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, resultStatus(res), res)
}

type bulkRequest struct {
	IDs     []string        `json:"ids"`
	Options json.RawMessage `json:"options"`
}

func (s *Server) bulkPublish(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("ids must not be empty"))
		return
	}

	opts := domain.DefaultPublishOptions()
	if err := overlay(req.Options, &opts); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("options: %w", err))
		return
	}
	if err := checkOptions(opts); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// A paced batch outlives the server's write timeout; the response is written once at the end.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Warn("clear write deadline for bulk publish", "error", err)
	}

	writeJSON(w, http.StatusOK, s.publisher.BulkPublishIDs(r.Context(), req.IDs, opts))
}

// decodeOptions starts from the default options so omitted fields keep safe values.
func decodeOptions(r *http.Request) (domain.PublishOptions, error) {
	opts := domain.DefaultPublishOptions()
	if err := decode(r, &opts); err != nil {
		return opts, err
	}
	return opts, checkOptions(opts)
}

func checkOptions(opts domain.PublishOptions) error {
	if _, err := domain.ParseEnvironment(string(opts.Environment)); err != nil {
		return err
	}
	switch opts.Status {
	case "", domain.TargetDraft, domain.TargetPublish:
	default:
		return fmt.Errorf("unknown status %q", opts.Status)
	}
	if opts.RequireMinQualityScore < 0 || opts.RequireMinQualityScore > 100 {
		return fmt.Errorf("requireMinQualityScore %d outside 0-100", opts.RequireMinQualityScore)
	}
	return nil
}

// overlay decodes raw over dst, so fields the caller omits keep their current values.
func overlay(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// decode accepts an empty body, leaving dst untouched.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func resultStatus(res domain.PublishResult) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.ErrorClass {
	case domain.ClassPolicyViolation:
		return http.StatusUnprocessableEntity
	case domain.ClassTransportFailure:
		return http.StatusBadGateway
	case domain.ClassQualityAdvisory, domain.ClassSideEffectFailure:
		return http.StatusOK
	}
	return http.StatusInternalServerError
}

func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrContentNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
