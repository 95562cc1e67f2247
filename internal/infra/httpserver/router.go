package httpserver

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appanalysis "github.com/bryanwahyu/radiology-analyzer/internal/application/analysis"
	"github.com/bryanwahyu/radiology-analyzer/internal/domain/imaging"
	"github.com/bryanwahyu/radiology-analyzer/internal/domain/report"
	"github.com/bryanwahyu/radiology-analyzer/internal/middleware"
)

// Options carries everything the router needs besides the service.
type Options struct {
	Logger         *slog.Logger
	Metrics        *middleware.Metrics
	RateLimiter    *middleware.RateLimiter
	Health         map[string]middleware.HealthChecker
	CORSOrigins    []string
	MaxUploadBytes int64
	Model          string

	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxy bool
}

type Router struct {
	svc       *appanalysis.Service
	logger    *slog.Logger
	metrics   *middleware.Metrics
	pages     *template.Template
	maxUpload int64
}

func NewRouter(svc *appanalysis.Service, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = middleware.NewMetrics()
	}
	if opts.RateLimiter == nil {
		opts.RateLimiter = middleware.NewRateLimiter(0, 0)
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	r := &Router{
		svc:       svc,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		pages:     parsePages(),
		maxUpload: opts.MaxUploadBytes,
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	if opts.TrustProxy {
		mux.Use(chimw.RealIP)
	}
	mux.Use(middleware.Logging(opts.Logger))
	mux.Use(opts.Metrics.Middleware)
	mux.Use(chimw.Recoverer)

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.HealthHandler(opts.Health))
	mux.Get("/ready", middleware.ReadinessHandler(opts.Model))
	mux.Handle("/metrics", opts.Metrics.Handler())

	// UI
	mux.Get("/", r.handleIndex)
	mux.With(middleware.RateLimit(opts.RateLimiter, http.HandlerFunc(r.denyPage))).
		Post("/analyze", r.page(r.handleAnalyzePage))
	mux.Get("/reports/{id}", r.page(r.handleReportPage))
	mux.Get("/reports/{id}/pdf", r.page(r.handleReportPDF))
	mux.Post("/reports/{id}/clear", r.page(r.handleClearPage))

	// JSON API
	mux.Route("/v1", func(rt chi.Router) {
		rt.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"Content-Disposition", "Location", "Retry-After"},
			MaxAge:         300,
		}))
		rt.With(middleware.RateLimit(opts.RateLimiter, http.HandlerFunc(r.denyJSON))).
			Post("/analyses", r.wrap(r.handleAPIAnalyze))
		rt.Get("/analyses/{id}", r.wrap(r.handleAPIGet))
		rt.Get("/analyses/{id}/report.pdf", r.wrap(r.handleAPIReport))
		rt.Delete("/analyses/{id}", r.wrap(r.handleAPIDelete))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap turns handler errors into JSON error responses.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			e := classify(err)
			r.logFailure(req, e, err)
			writeJSON(w, e.Status, errorResponse{Error: e.Code, Message: e.Message})
		}
	}
}

func (r *Router) logFailure(req *http.Request, e apiError, err error) {
	level := slog.LevelWarn
	if e.Status >= 500 {
		level = slog.LevelError
	}
	r.logger.LogAttrs(req.Context(), level, "request failed",
		slog.String("path", req.URL.Path),
		slog.String("code", e.Code),
		slog.Int("status", e.Status),
		slog.String("err", err.Error()),
		slog.String("request_id", chimw.GetReqID(req.Context())),
	)
}

func (r *Router) denyJSON(w http.ResponseWriter, req *http.Request) {
	r.metrics.RateLimitedTotal.Inc()
	writeJSON(w, http.StatusTooManyRequests, errorResponse{
		Error:   "rate_limited",
		Message: "Too many analysis requests, please try again later.",
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// analysisResponse is the JSON shape of a stored analysis.
type analysisResponse struct {
	ID        report.AnalysisID `json:"id"`
	Text      string            `json:"text"`
	Sections  []report.Section  `json:"sections"`
	Model     string            `json:"model"`
	Image     imageInfo         `json:"image"`
	Metadata  report.Metadata   `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
	Links     map[string]string `json:"links"`
}

type imageInfo struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

func toResponse(res *report.AnalysisResult, img *imaging.UploadedImage) analysisResponse {
	out := analysisResponse{
		ID:        res.ID,
		Text:      res.Text,
		Sections:  res.Sections,
		Model:     res.Model,
		Image:     imageInfo{Name: res.ImageName, Format: res.ImageFormat},
		Metadata:  res.Metadata,
		CreatedAt: res.CreatedAt,
		Links: map[string]string{
			"self":   "/v1/analyses/" + string(res.ID),
			"report": "/v1/analyses/" + string(res.ID) + "/report.pdf",
		},
	}
	if img != nil {
		out.Image.Width = img.Width
		out.Image.Height = img.Height
	}
	return out
}
