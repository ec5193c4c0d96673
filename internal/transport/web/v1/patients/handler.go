package patients

import (
	"net/http"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
	"github.com/Victorkib/mentacare-backend-admin/internal/query"
	"github.com/Victorkib/mentacare-backend-admin/internal/service"
	v1 "github.com/Victorkib/mentacare-backend-admin/internal/transport/web/v1"
)

type Handler struct {
	Log      logr.Logger
	Resp     *v1.Responder
	Patients *service.PatientService
}

func listParams(r *http.Request) (service.PatientListParams, error) {
	q := r.URL.Query()
	var (
		p   service.PatientListParams
		err error
	)
	if p.PageSize, err = query.Int(q, "pageSize", 0); err != nil {
		return p, err
	}
	p.Cursor, _ = query.String(q, "lastDocId")
	p.Keyword, _ = query.String(q, "keyword")
	p.AgeGroup, _ = query.String(q, "ageGroup")
	if p.ProfileComplete, err = query.Bool(q, "profileComplete"); err != nil {
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
	page, err := h.Patients.List(r.Context(), p)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, page)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var p service.PatientSearchParams
	p.Keyword, _ = query.String(q, "keyword")
	p.AgeGroup, _ = query.String(q, "ageGroup")
	p.Gender, _ = query.String(q, "gender")
	limit, err := query.Int(q, "limit", 0)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	p.Limit = limit

	found, err := h.Patients.Search(r.Context(), p)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, found)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Patients.Summary(r.Context())
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, sum)
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.Patients.Analytics(r.Context())
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, a)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.PatientInput
	if err := v1.Decode(r, &in); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	p, err := h.Patients.Create(r.Context(), in)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.Created(w, r, p)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := v1.PathID(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	p, err := h.Patients.Get(r.Context(), id)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, p)
}

// Update applies a partial update. Legacy field names are accepted.
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
	p, err := h.Patients.Update(r.Context(), id, fields)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := v1.PathID(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if err := h.Patients.Delete(r.Context(), id); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.Message(w, r, "patient deleted")
}

func (h *Handler) BatchUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.BatchInput
	if err := v1.Decode(r, &in); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	n, err := h.Patients.BatchUpdate(r.Context(), in)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, map[string]int{"updated": n})
}

// AssignTherapist sets or, with a null or empty therapistId, clears the
// patient's therapist.
func (h *Handler) AssignTherapist(w http.ResponseWriter, r *http.Request) {
	id, err := v1.PathID(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	var in struct {
		TherapistID *string `json:"therapistId"`
	}
	if err := v1.Decode(r, &in); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	var therapist *uuid.UUID
	if in.TherapistID != nil && *in.TherapistID != "" {
		tid, err := uuid.Parse(*in.TherapistID)
		if err != nil {
			h.Resp.Fail(w, r, domain.InvalidField("therapistId", "must be a valid id"))
			return
		}
		therapist = &tid
	}
	p, err := h.Patients.AssignTherapist(r.Context(), id, therapist)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, p)
}

func (h *Handler) Flag(w http.ResponseWriter, r *http.Request) {
	id, err := v1.PathID(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	var in struct {
		Flag string `json:"flag"`
	}
	if err := v1.Decode(r, &in); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	p, err := h.Patients.Flag(r.Context(), id, in.Flag)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, p)
}

// Documents attaches files: multipart uploads under "files" go to blob
// storage, a JSON body lists already hosted documents.
func (h *Handler) Documents(w http.ResponseWriter, r *http.Request) {
	id, err := v1.PathID(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}

	if v1.IsMultipart(r) {
		uploads, done, err := v1.Multipart(r, "files", nil)
		defer done()
		if err != nil {
			h.Resp.Fail(w, r, err)
			return
		}
		p, err := h.Patients.UploadDocuments(r.Context(), id, uploads)
		if err != nil {
			h.Resp.Fail(w, r, err)
			return
		}
		h.Resp.OK(w, r, p)
		return
	}

	var in struct {
		Documents []service.FileInput `json:"documents"`
	}
	if err := v1.Decode(r, &in); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	p, err := h.Patients.AddDocuments(r.Context(), id, in.Documents)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, p)
}
