package api

import (
	"net/http"

	chatapi "github.com/futig/uiprime-backend/internal/api/chat"
	contactapi "github.com/futig/uiprime-backend/internal/api/contact"
	"github.com/futig/uiprime-backend/internal/api/docs"
	"github.com/futig/uiprime-backend/internal/api/middleware"
	"github.com/futig/uiprime-backend/internal/config"
	"github.com/futig/uiprime-backend/internal/pkg/ratelimit"
	"github.com/futig/uiprime-backend/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const healthPath = "/health"

// Handlers groups the endpoint handlers. A nil handler means the feature is
// disabled and its routes answer 503.
type Handlers struct {
	Chat    *chatapi.Handler
	Contact *contactapi.Handler
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(
	cfg *config.Config,
	handlers Handlers,
	limiter ratelimit.Limiter,
	clientIP *middleware.ClientIP,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.CORSCfg.AllowedOrigins, cfg.CORSCfg.MaxAge, healthPath))
	r.Use(chimiddleware.StripSlashes)
	r.Use(chimiddleware.RequestSize(cfg.MaxBodyBytes))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	r.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, map[string]string{"status": "ok"})
	})

	docs.RegisterRoutes(r)

	chatapi.RegisterRoutes(r.With(middleware.RateLimit(limiter, ratelimit.OperationChat, clientIP)), handlers.Chat)
	contactapi.RegisterRoutes(r.With(middleware.RateLimit(limiter, ratelimit.OperationContact, clientIP)), handlers.Contact)

	return r
}
