package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"example.com/planner/internal/auth"
)

// RouterConfig assembles the HTTP surface.
type RouterConfig struct {
	Handler    *Handler
	Auth       auth.Config
	Logger     zerolog.Logger
	CORSOrigin string
	Limiter    *RateLimiter // nil disables rate limiting
}

// NewRouter returns the API with middleware applied outermost first: CORS,
// rate limiting, request logging, then bearer auth.
func NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	cfg.Handler.RegisterRoutes(router)

	authenticate := auth.NewMiddleware(cfg.Auth, func(w http.ResponseWriter, status int, err error) {
		writeError(w, status, "unauthorized", err.Error())
	})

	var h http.Handler = authenticate(router)
	h = RequestLogger(cfg.Logger, routeTemplate(router))(h)
	if cfg.Limiter != nil {
		h = cfg.Limiter.Limit(h)
	}
	return CORS(cfg.CORSOrigin)(h)
}

// routeTemplate resolves a request to its route path template, or
// "unmatched".
func routeTemplate(router *mux.Router) func(*http.Request) string {
	return func(r *http.Request) string {
		var match mux.RouteMatch
		if router.Match(r, &match) && match.Route != nil {
			if tpl, err := match.Route.GetPathTemplate(); err == nil {
				return tpl
			}
		}
		return "unmatched"
	}
}
