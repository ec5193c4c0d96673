package admins

import (
	"net/http"

	"github.com/go-logr/logr"

	"github.com/Victorkib/mentacare-backend-admin/internal/auth"
	"github.com/Victorkib/mentacare-backend-admin/internal/query"
	"github.com/Victorkib/mentacare-backend-admin/internal/service"
	v1 "github.com/Victorkib/mentacare-backend-admin/internal/transport/web/v1"
)

type Handler struct {
	Log    logr.Logger
	Resp   *v1.Responder
	Admins *service.AdminService
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.AdminInput
	if err := v1.Decode(r, &in); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	admin, err := h.Admins.Create(r.Context(), in)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.Created(w, r, admin)
}

// List accepts role, isActive and keyword.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var p service.AdminListParams
	p.Role, _ = query.String(q, "role")
	p.Keyword, _ = query.String(q, "keyword")
	active, err := query.Bool(q, "isActive")
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	p.Active = active

	admins, err := h.Admins.List(r.Context(), p)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, admins)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := v1.PathID(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	admin, err := h.Admins.Get(r.Context(), id)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, admin)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := v1.PathID(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	var in service.AdminUpdate
	if err := v1.Decode(r, &in); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	who, _ := auth.IdentityFrom(r.Context())
	admin, err := h.Admins.Update(r.Context(), who, id, in)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, admin)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := v1.PathID(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	who, _ := auth.IdentityFrom(r.Context())
	if err := h.Admins.Delete(r.Context(), who, id); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.Message(w, r, "admin deleted")
}
