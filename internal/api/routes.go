package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/vidspark/vidspark/internal/auth"
	"github.com/vidspark/vidspark/internal/metrics"
	"github.com/vidspark/vidspark/internal/user"
)

// SetupRoutes wires the HTTP surface. The webhook, health and metrics
// endpoints sit outside the auth chain; everything else requires a
// verified identity and a bootstrapped account.
func SetupRoutes(
	accounts *AccountHandler,
	payments *PaymentsHandler,
	generations *GenerationHandler,
	authMiddleware *auth.Middleware,
	bootstrapper user.Bootstrapper,
	m *metrics.Metrics,
	frontendURL string,
	log *logrus.Logger,
) *mux.Router {
	r := mux.NewRouter()

	r.Use(CORSMiddleware(frontendURL))
	r.Use(LoggingMiddleware(log))
	r.Use(RecoveryMiddleware(log))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})).Methods("GET")

	r.HandleFunc("/api/v1/stripe/webhook", payments.HandleWebhook).Methods("POST")
	r.HandleFunc("/api/v1/packs", payments.ListPacks).Methods("GET")

	authed := r.PathPrefix("/api/v1").Subrouter()
	authed.Use(authMiddleware.RequireAuth)
	authed.Use(user.Middleware(bootstrapper, log))

	authed.HandleFunc("/me", accounts.Me).Methods("GET")
	authed.HandleFunc("/credits", accounts.Balance).Methods("GET")
	authed.HandleFunc("/credits/history", accounts.History).Methods("GET")

	authed.HandleFunc("/payments/intent", payments.CreateIntent).Methods("POST")
	authed.HandleFunc("/payments/confirm", payments.ConfirmPayment).Methods("POST")

	authed.HandleFunc("/generations/stylize", generations.Stylize).Methods("POST")
	authed.HandleFunc("/generations/video", generations.SubmitVideo).Methods("POST")
	authed.HandleFunc("/generations/{predictionID}", generations.Status).Methods("GET")

	return r
}
