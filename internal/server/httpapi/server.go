// Package httpapi exposes the relay core to front-end adapters and the
// moderation panel over a JSON HTTP API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/anonrelay/internal/logging"
	"github.com/dmitrijs2005/anonrelay/internal/server/config"
	"github.com/dmitrijs2005/anonrelay/internal/server/services"
)

// Server wires the HTTP routes to the service layer.
type Server struct {
	config    *config.Config
	logger    logging.Logger
	relay     *services.RelayService
	identity  *services.IdentityService
	audit     *services.AuditService
	analytics *services.AnalyticsService
	media     *services.MediaService
}

func NewServer(cfg *config.Config, l logging.Logger, relay *services.RelayService,
	identity *services.IdentityService, audit *services.AuditService,
	analytics *services.AnalyticsService, media *services.MediaService) *Server {
	return &Server{
		config:    cfg,
		logger:    l.With("module", "httpapi"),
		relay:     relay,
		identity:  identity,
		audit:     audit,
		analytics: analytics,
		media:     media,
	}
}

// Router builds the full route table. Everything under /api/v1 requires a
// service token; health and metrics stay open.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/auth/token", s.issueToken).Methods(http.MethodPost)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.authMiddleware)

	api.HandleFunc("/events", s.processEvent).Methods(http.MethodPost)
	api.HandleFunc("/links/{payload}", s.resolveLink).Methods(http.MethodGet)

	api.HandleFunc("/messages/{id}", s.getMessage).Methods(http.MethodGet)
	api.HandleFunc("/messages/{id}/approve", s.approveMessage).Methods(http.MethodPost)
	api.HandleFunc("/messages/{id}/reject", s.rejectMessage).Methods(http.MethodPost)
	api.HandleFunc("/messages/{id}/read", s.markRead).Methods(http.MethodPost)

	api.HandleFunc("/moderation/pending/count", s.pendingCount).Methods(http.MethodGet)
	api.HandleFunc("/moderation/urgent", s.urgentPending).Methods(http.MethodGet)

	api.HandleFunc("/users/{externalID}/inbox", s.inbox).Methods(http.MethodGet)
	api.HandleFunc("/users/{externalID}/stats", s.userStats).Methods(http.MethodGet)

	api.HandleFunc("/media/uploads", s.presignUpload).Methods(http.MethodPost)

	api.HandleFunc("/admin/users/{id}/block", s.blockUser).Methods(http.MethodPost)
	api.HandleFunc("/admin/users/{id}/unblock", s.unblockUser).Methods(http.MethodPost)
	api.HandleFunc("/admin/alerts", s.listAlerts).Methods(http.MethodGet)
	api.HandleFunc("/admin/alerts/{id}/resolve", s.resolveAlert).Methods(http.MethodPost)
	api.HandleFunc("/admin/modlog", s.modLog).Methods(http.MethodGet)

	api.HandleFunc("/admin/analytics/summary", s.analyticsSummary).Methods(http.MethodGet)
	api.HandleFunc("/admin/analytics/hourly", s.analyticsHourly).Methods(http.MethodGet)
	api.HandleFunc("/admin/analytics/daily", s.analyticsDaily).Methods(http.MethodGet)
	api.HandleFunc("/admin/analytics/heatmap", s.analyticsHeatmap).Methods(http.MethodGet)
	api.HandleFunc("/admin/analytics/sentiments", s.analyticsSentiments).Methods(http.MethodGet)

	return r
}

// Run serves the API until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.config.EndpointAddrHTTP,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "error shutting down HTTP server", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.config.EndpointAddrHTTP)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
