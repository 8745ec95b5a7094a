package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/timesheet-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	RequestLevel   slog.Level
}

func NewRouter(opts RouterOptions, JWTService jwt.Service, timesheetHandler TimesheetHandler, masterHandler MasterHandler) *chi.Mux {
	r := chi.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Warning"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.RequestLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Route("/timesheet", func(r chi.Router) {
				r.Get("/", timesheetHandler.GetMonth)
				r.Put("/records/{id}", timesheetHandler.UpdateTimes)
			})

			r.Route("/registrations", func(r chi.Router) {
				r.Get("/", timesheetHandler.ListRegistrations)
				r.Post("/", timesheetHandler.CreateRegistration)
				r.Get("/types", timesheetHandler.ListRegistrationTypes)
			})

			r.Route("/master", func(r chi.Router) {
				r.Get("/warehouses", masterHandler.ListWarehouses)

				// Admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.AdminOnly)
					r.Delete("/cache", masterHandler.ClearCache)
				})
			})
		})
	})
	return r
}
