package web

import (
	"net/http"

	"github.com/go-logr/logr"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
	"github.com/Victorkib/mentacare-backend-admin/internal/metrics"
	"github.com/Victorkib/mentacare-backend-admin/internal/service"
	"github.com/Victorkib/mentacare-backend-admin/internal/transport/web/mw"
	v1 "github.com/Victorkib/mentacare-backend-admin/internal/transport/web/v1"
	"github.com/Victorkib/mentacare-backend-admin/internal/transport/web/v1/admins"
	authv1 "github.com/Victorkib/mentacare-backend-admin/internal/transport/web/v1/auth"
	"github.com/Victorkib/mentacare-backend-admin/internal/transport/web/v1/health"
	"github.com/Victorkib/mentacare-backend-admin/internal/transport/web/v1/patients"
	"github.com/Victorkib/mentacare-backend-admin/internal/transport/web/v1/sessions"
	"github.com/Victorkib/mentacare-backend-admin/internal/transport/web/v1/therapists"
)

// DefaultMaxBodyBytes bounds request bodies, uploads included.
const DefaultMaxBodyBytes = 32 << 20

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Log     logr.Logger
	Metrics *metrics.Metrics

	Auth       *service.AuthService
	Admins     *service.AdminService
	Patients   *service.PatientService
	Therapists *service.TherapistService
	Sessions   *service.SessionService

	Checks               []health.Check
	Cookies              authv1.CookieConfig
	ExposeInternalErrors bool
	MaxBodyBytes         int64
}

var (
	superOnly = []domain.Role{domain.RoleSuperAdmin}
	staff     = []domain.Role{domain.RoleSuperAdmin, domain.RoleAdmin}
	readers   = []domain.Role{domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleProfessional, domain.RoleTherapist}
	reporters = []domain.Role{domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleProfessional}
	clinical  = []domain.Role{domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleTherapist}
)

// NewRouter builds the HTTP handler with the full middleware chain.
func NewRouter(d Deps) http.Handler {
	log := d.Log.WithName("http")
	resp := &v1.Responder{Log: log, ExposeInternal: d.ExposeInternalErrors}

	hh := &health.Handler{Log: log, Resp: resp, Checks: d.Checks}
	ah := &authv1.Handler{Log: log, Resp: resp, Auth: d.Auth, Cookies: d.Cookies}
	adm := &admins.Handler{Log: log, Resp: resp, Admins: d.Admins}
	ph := &patients.Handler{Log: log, Resp: resp, Patients: d.Patients}
	th := &therapists.Handler{Log: log, Resp: resp, Therapists: d.Therapists}
	sh := &sessions.Handler{Log: log, Resp: resp, Sessions: d.Sessions}

	mux := http.NewServeMux()
	authed := mw.RequireAuth(d.Auth, resp.Fail)
	route := func(pattern string, h http.HandlerFunc, roles []domain.Role) {
		var next http.Handler = h
		if len(roles) > 0 {
			next = mw.RequireRoles(resp.Fail, roles...)(next)
		}
		mux.Handle(pattern, authed(next))
	}

	// health
	mux.HandleFunc("GET /healthz", hh.Liveness)
	mux.HandleFunc("GET /readyz", hh.Readiness)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	// auth
	mux.HandleFunc("POST /api/auth/login", ah.Login)
	mux.HandleFunc("POST /api/auth/refresh", ah.Refresh)
	route("POST /api/auth/logout", ah.Logout, nil)
	route("GET /api/auth/me", ah.Me, nil)

	// admins
	route("POST /api/admins", adm.Create, superOnly)
	route("GET /api/admins", adm.List, staff)
	route("GET /api/admins/{id}", adm.Get, staff)
	route("PUT /api/admins/{id}", adm.Update, staff)
	route("DELETE /api/admins/{id}", adm.Delete, superOnly)

	// patients
	route("POST /api/patients", ph.Create, staff)
	route("GET /api/patients", ph.List, readers)
	route("GET /api/patients/summary", ph.Summary, reporters)
	route("GET /api/patients/analytics", ph.Analytics, staff)
	route("GET /api/patients/search", ph.Search, readers)
	route("PUT /api/patients/batch-update", ph.BatchUpdate, staff)
	route("GET /api/patients/{id}", ph.Get, readers)
	route("PUT /api/patients/{id}", ph.Update, staff)
	route("DELETE /api/patients/{id}", ph.Delete, staff)
	route("PUT /api/patients/{id}/assign-therapist", ph.AssignTherapist, staff)
	route("PUT /api/patients/{id}/flag", ph.Flag, staff)
	route("PUT /api/patients/{id}/documents", ph.Documents, staff)

	// therapists
	route("POST /api/therapists", th.Create, staff)
	route("GET /api/therapists", th.List, staff)
	route("GET /api/therapists/summary", th.Summary, staff)
	route("GET /api/therapists/specializations", th.Specializations, staff)
	route("PUT /api/therapists/batch-update", th.BatchUpdate, staff)
	route("GET /api/therapists/{id}", th.Get, staff)
	route("PUT /api/therapists/{id}", th.Update, staff)
	route("DELETE /api/therapists/{id}", th.Delete, staff)
	route("PUT /api/therapists/{id}/assign-patients", th.AssignPatients, staff)
	route("PUT /api/therapists/{id}/availability", th.Availability, staff)

	// sessions
	route("POST /api/sessions", sh.Create, staff)
	route("GET /api/sessions", sh.List, clinical)
	route("GET /api/sessions/{id}", sh.Get, clinical)
	route("PUT /api/sessions/{id}", sh.Update, clinical)
	route("DELETE /api/sessions/{id}", sh.Delete, staff)
	route("PUT /api/sessions/{id}/notes-attachments", sh.NotesAndAttachments, clinical)
	route("PUT /api/sessions/{id}/mark-attendance", sh.MarkAttendance, clinical)
	route("PUT /api/sessions/{id}/status", sh.UpdateStatus, clinical)

	limit := d.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	var h http.Handler = mw.LimitBody(limit)(mux)
	if d.Metrics != nil {
		h = d.Metrics.Middleware(h)
	}
	return mw.WithRequestID(mw.Logging(log)(h))
}
