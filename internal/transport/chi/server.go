package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragrec/internal/domain"
	"github.com/kailas-cloud/ragrec/internal/domain/outcome"
	"github.com/kailas-cloud/ragrec/internal/domain/query"
	"github.com/kailas-cloud/ragrec/internal/domain/recommendation"
	"github.com/kailas-cloud/ragrec/internal/ingest/source"
	logpkg "github.com/kailas-cloud/ragrec/internal/logger"
	"github.com/kailas-cloud/ragrec/internal/metrics"
	healthuc "github.com/kailas-cloud/ragrec/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragrec/internal/usecase/ingest"
	recommenduc "github.com/kailas-cloud/ragrec/internal/usecase/recommend"
)

// MaxK caps the retrieval depth a client may request.
const MaxK = 100

// MaxItemsPerRequest caps POST /items batches.
const MaxItemsPerRequest = 1000

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Options tune the HTTP surface.
type Options struct {
	APIKeys      []string
	MaxBodyBytes int64
}

// Server exposes the recommendation pipeline and corpus management over HTTP.
type Server struct {
	recommend     *recommenduc.Service
	ingest        *ingestuc.Service
	health        *healthuc.Service
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	recommend *recommenduc.Service,
	ingest *ingestuc.Service,
	health *healthuc.Service,
	opts Options,
	logger *zap.Logger,
) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 4 << 20
	}
	s := &Server{
		recommend: recommend,
		ingest:    ingest,
		health:    health,
		opts:      opts,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidItem, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusInternalServerError, CodeDimensionMismatch),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProvider),
	}
	return s
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(s.opts.APIKeys))
	r.Use(metrics.Middleware())

	r.Post("/recommend", s.Recommend)
	r.Route("/items", func(r chi.Router) {
		r.Post("/", s.AddItems)
		r.Delete("/", s.ResetItems)
		r.Get("/count", s.CountItems)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// Recommend handles POST /recommend.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if !s.decode(w, r, &req) {
		return
	}

	q, err := query.New(req.Profile, req.Input)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	k := 0
	if req.K != nil {
		if *req.K < 1 || *req.K > MaxK {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "k must be between 1 and 100")
			return
		}
		k = *req.K
	}

	out := s.recommend.Recommend(r.Context(), q, k)
	writeJSON(w, outcomeStatus(out), outcomeToResponse(out))
}

// AddItems handles POST /items. The batch is indexed atomically.
func (s *Server) AddItems(w http.ResponseWriter, r *http.Request) {
	var req AddItemsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "items must not be empty")
		return
	}
	if len(req.Items) > MaxItemsPerRequest {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "too many items in one request")
		return
	}

	items, err := source.Records(req.Items)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	report, err := s.ingest.Add(r.Context(), items)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, AddItemsResponse{Indexed: report.Items})
}

// CountItems handles GET /items/count.
func (s *Server) CountItems(w http.ResponseWriter, r *http.Request) {
	n, err := s.ingest.Count(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// ResetItems handles DELETE /items.
func (s *Server) ResetItems(w http.ResponseWriter, r *http.Request) {
	if err := s.ingest.Reset(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeBadRequest, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// outcomeStatus maps a pipeline outcome to an HTTP status. Success and empty
// are both 200: an empty answer is a valid result, not a failure.
func outcomeStatus(out outcome.Outcome) int {
	if out.Status() != outcome.StatusFailed {
		return http.StatusOK
	}
	switch out.Kind() {
	case outcome.KindModelTimeout:
		return http.StatusGatewayTimeout
	case outcome.KindModelUnavailable, outcome.KindEmbedding:
		return http.StatusBadGateway
	case outcome.KindRateLimited:
		return http.StatusTooManyRequests
	case outcome.KindInvalidQuery:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func outcomeToResponse(out outcome.Outcome) RecommendResponse {
	resp := RecommendResponse{
		Status:          string(out.Status()),
		Recommendations: out.Recommendations(),
		Reason:          out.Reason(),
		Backend:         out.Backend(),
	}
	if resp.Recommendations == nil {
		resp.Recommendations = []recommendation.Recommendation{}
	}
	if out.Status() == outcome.StatusFailed {
		resp.Error = &PipelineError{
			Kind:    string(out.Kind()),
			Stage:   string(out.Stage()),
			Message: out.Guidance(),
		}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client sees only the sentinel text, never the wrapped chain.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
