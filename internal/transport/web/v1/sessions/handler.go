package sessions

import (
	"net/http"

	"github.com/go-logr/logr"

	"github.com/Victorkib/mentacare-backend-admin/internal/auth"
	"github.com/Victorkib/mentacare-backend-admin/internal/query"
	"github.com/Victorkib/mentacare-backend-admin/internal/service"
	v1 "github.com/Victorkib/mentacare-backend-admin/internal/transport/web/v1"
)

type Handler struct {
	Log      logr.Logger
	Resp     *v1.Responder
	Sessions *service.SessionService
}

func listParams(r *http.Request) (service.SessionListParams, error) {
	q := r.URL.Query()
	var (
		p   service.SessionListParams
		err error
	)
	if p.PageNumber, err = query.Int(q, "pageNumber", 1); err != nil {
		return p, err
	}
	if p.PageSize, err = query.Int(q, "pageSize", 0); err != nil {
		return p, err
	}
	p.Status, _ = query.String(q, "status")
	if p.PatientID, err = query.UUID(q, "patientId"); err != nil {
		return p, err
	}
	if p.TherapistID, err = query.UUID(q, "therapistId"); err != nil {
		return p, err
	}
	return p, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	who, _ := auth.IdentityFrom(r.Context())
	page, err := h.Sessions.List(r.Context(), who, p)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, page)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.SessionInput
	if err := v1.Decode(r, &in); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	s, err := h.Sessions.Create(r.Context(), in)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.Created(w, r, s)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := v1.PathID(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	who, _ := auth.IdentityFrom(r.Context())
	s, err := h.Sessions.Get(r.Context(), who, id)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, s)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := v1.PathID(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	var fields map[string]any
	if err := v1.Decode(r, &fields); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	who, _ := auth.IdentityFrom(r.Context())
	s, err := h.Sessions.Update(r.Context(), who, id, fields)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, s)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := v1.PathID(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if err := h.Sessions.Delete(r.Context(), id); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.Message(w, r, "session deleted")
}

// NotesAndAttachments accepts JSON, or multipart with the JSON in a "meta"
// part and uploads under "files".
func (h *Handler) NotesAndAttachments(w http.ResponseWriter, r *http.Request) {
	id, err := v1.PathID(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	var (
		in      service.NotesInput
		uploads []service.Upload
	)
	if v1.IsMultipart(r) {
		var done func()
		uploads, done, err = v1.Multipart(r, "files", &in)
		defer done()
		if err != nil {
			h.Resp.Fail(w, r, err)
			return
		}
	} else if err := v1.Decode(r, &in); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	who, _ := auth.IdentityFrom(r.Context())
	s, err := h.Sessions.NotesAndAttachments(r.Context(), who, id, in, uploads)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, s)
}

func (h *Handler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := v1.PathID(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	var in service.AttendanceInput
	if err := v1.Decode(r, &in); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	who, _ := auth.IdentityFrom(r.Context())
	s, err := h.Sessions.MarkAttendance(r.Context(), who, id, in)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, s)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := v1.PathID(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := v1.Decode(r, &in); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	who, _ := auth.IdentityFrom(r.Context())
	s, err := h.Sessions.UpdateStatus(r.Context(), who, id, in.Status)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, s)
}
