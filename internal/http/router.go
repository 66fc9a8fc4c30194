package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/stash/internal/http/goal"
	"github.com/MrJamesThe3rd/stash/internal/http/importcsv"
	"github.com/MrJamesThe3rd/stash/internal/http/tagging"
	"github.com/MrJamesThe3rd/stash/internal/http/transaction"
)

type Options struct {
	AllowedOrigins []string
	// AuthSecret enables bearer authentication on /api/v1 when set.
	AuthSecret string
}

func New(
	opts Options,
	goalsV1 *goal.Handler,
	transactionsV1 *transaction.Handler,
	importV1 *importcsv.Handler,
	taggingV1 *tagging.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/api/v1", func(r chi.Router) {
		if opts.AuthSecret != "" {
			r.Use(RequireBearer([]byte(opts.AuthSecret)))
		}

		r.Route("/goals", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			goalsV1.Routes(r)
		})

		goalsV1.HistoryRoutes(r)

		r.Route("/transactions", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			transactionsV1.Routes(r)
		})

		r.Route("/accounts", transactionsV1.AccountRoutes)

		r.Route("/import", importV1.Routes)

		r.Route("/tagging", taggingV1.Routes)
	})

	return router
}
