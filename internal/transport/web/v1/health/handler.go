package health

import (
	"context"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
	"github.com/Victorkib/mentacare-backend-admin/internal/transport/web/mw"
	v1 "github.com/Victorkib/mentacare-backend-admin/internal/transport/web/v1"
)

type Pinger interface {
	Ping(context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Check is one named readiness dependency.
type Check struct {
	Name string
	Pinger
}

type Handler struct {
	Log    logr.Logger
	Resp   *v1.Responder
	Checks []Check
}

// Liveness reports that the process serves requests.
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	h.Resp.OK(w, r, map[string]string{"status": "ok"})
}

// Readiness pings every dependency and fails on the first that does not
// answer.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for _, c := range h.Checks {
		if err := c.Ping(ctx); err != nil {
			h.Log.Error(err, "readiness check failed", "check", c.Name, "request_id", mw.RequestIDFromCtx(r.Context()))
			h.Resp.Fail(w, r, domain.Internal(err, c.Name+" unavailable"))
			return
		}
	}
	h.Resp.OK(w, r, map[string]string{"status": "ready"})
}
