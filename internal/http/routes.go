package httpx

import (
	"log/slog"
	"net/http"

	"github.com/lessonforge/videogen/internal/core"
)

// RouterServices holds the services needed by the HTTP router.
type RouterServices struct {
	Scheduler *core.JobScheduler
	Store     core.JobStore
	// CORSAllowOrigin is the Access-Control-Allow-Origin value; empty
	// disables cross-origin headers.
	CORSAllowOrigin string
	Logger          *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{
		Scheduler: services.Scheduler,
		Store:     services.Store,
		Logger:    logger,
	}
	mux.Handle("POST /api/generate", http.HandlerFunc(jobHandlers.Generate))
	mux.Handle("GET /api/status/{job_id}", http.HandlerFunc(jobHandlers.Status))
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	var handler http.Handler = mux
	handler = CORS(services.CORSAllowOrigin)(handler)
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}
