// Package httpapi is the HTTP layer: routing, authentication wrappers,
// middleware chain and JSON plumbing.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"campusshare.org/internal/auth"
	"campusshare.org/internal/blob"
	"campusshare.org/internal/download"
	"campusshare.org/internal/obs"
	"campusshare.org/internal/resource"
)

// ReadyProbe reports backing-store readiness (DB ping when configured).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps wires the domain services into the HTTP layer.
type Deps struct {
	Users     auth.Store
	Tokens    *auth.Tokens
	Resources resource.Service
	Blobs     blob.Store
	Signer    *download.Signer
	Referers  *download.RefererPolicy

	ReadyProbe     ReadyProbe
	Version        string
	AllowedOrigins []string
	RateBurst      int
	RatePerSec     int
}

// API is the HTTP layer.
type API struct {
	mux       *http.ServeMux
	users     auth.Store
	tokens    *auth.Tokens
	resources resource.Service
	blobs     blob.Store
	signer    *download.Signer
	referers  *download.RefererPolicy

	readyProbe ReadyProbe
	version    string

	allowedOrigins []string
	rateBurst      int
	ratePerSec     int
}

func New(d Deps) *API {
	a := &API{
		mux:            http.NewServeMux(),
		users:          d.Users,
		tokens:         d.Tokens,
		resources:      d.Resources,
		blobs:          d.Blobs,
		signer:         d.Signer,
		referers:       d.Referers,
		readyProbe:     d.ReadyProbe,
		version:        d.Version,
		allowedOrigins: d.AllowedOrigins,
		rateBurst:      d.RateBurst,
		ratePerSec:     d.RatePerSec,
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 10
	}

	a.mux.HandleFunc("GET /api/health", a.handleHealth)
	a.mux.Handle("GET /metrics", obs.Handler())

	a.mux.HandleFunc("POST /api/auth/register", a.handleRegister)
	a.mux.HandleFunc("POST /api/auth/login", a.handleLogin)
	a.mux.HandleFunc("GET /api/auth/me", a.requireUser(a.handleMe))

	a.mux.HandleFunc("POST /api/upload", a.requireUser(a.handleUpload))

	a.mux.HandleFunc("POST /api/resources", a.requireUser(a.handleCreateResource))
	a.mux.HandleFunc("GET /api/resources", a.optionalUser(a.handleListResources))
	a.mux.HandleFunc("GET /api/resources/search", a.optionalUser(a.handleSearchResources))
	a.mux.HandleFunc("GET /api/resources/{id}", a.optionalUser(a.handleGetResource))
	a.mux.HandleFunc("DELETE /api/resources/{id}", a.requireUser(a.handleDeleteResource))
	a.mux.HandleFunc("POST /api/resources/{id}/vote", a.requireUser(a.handleVote))
	a.mux.HandleFunc("GET /api/resources/{id}/download-url", a.requireUser(a.handleDownloadURL))
	a.mux.HandleFunc("GET /api/resources/{id}/download", a.handleDownload)

	a.mux.HandleFunc("GET /api/stats/top-contributors", a.handleTopContributors)

	a.mux.HandleFunc("GET /api/admin/dashboard", a.requireAdmin(a.handleAdminDashboard))
	a.mux.HandleFunc("GET /api/admin/resources", a.requireAdmin(a.handleAdminListResources))
	a.mux.HandleFunc("GET /api/admin/resources/{id}", a.requireAdmin(a.handleAdminGetResource))
	a.mux.HandleFunc("DELETE /api/admin/resources/{id}", a.requireAdmin(a.handleAdminDeleteResource))
	a.mux.HandleFunc("GET /api/admin/users", a.requireAdmin(a.handleAdminListUsers))
	a.mux.HandleFunc("PUT /api/admin/users/{id}/role", a.requireAdmin(a.handleAdminUpdateRole))
	a.mux.HandleFunc("GET /api/admin/metrics/downloads-over-time", a.requireAdmin(a.handleDownloadsOverTime))

	return a
}

// Handler returns the fully-wrapped http.Handler: metrics on the outside,
// then request id, logging, security headers, CORS, rate limit, body cap.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, maxUploadBytes+1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h, a.allowedOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "campusshare-api",
		"version": a.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
