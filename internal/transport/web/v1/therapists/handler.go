package therapists

import (
	"fmt"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
	"github.com/Victorkib/mentacare-backend-admin/internal/query"
	"github.com/Victorkib/mentacare-backend-admin/internal/service"
	v1 "github.com/Victorkib/mentacare-backend-admin/internal/transport/web/v1"
)

type Handler struct {
	Log        logr.Logger
	Resp       *v1.Responder
	Therapists *service.TherapistService
}

func listParams(r *http.Request) (service.TherapistListParams, error) {
	q := r.URL.Query()
	var (
		p   service.TherapistListParams
		err error
	)
	if p.PageSize, err = query.Int(q, "pageSize", 0); err != nil {
		return p, err
	}
	p.Cursor, _ = query.String(q, "lastDocId")
	p.Keyword, _ = query.String(q, "keyword")
	p.Specialization, _ = query.String(q, "specialization")
	p.Experience, _ = query.String(q, "experience")
	if p.Verified, err = query.Bool(q, "isVerified"); err != nil {
		return p, err
	}
	if p.ProfileComplete, err = query.Bool(q, "isProfileComplete"); err != nil {
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
	page, err := h.Therapists.List(r.Context(), p)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, page)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Therapists.Summary(r.Context())
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, sum)
}

func (h *Handler) Specializations(w http.ResponseWriter, r *http.Request) {
	specs, err := h.Therapists.Specializations(r.Context())
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, specs)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.TherapistInput
	if err := v1.Decode(r, &in); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	t, err := h.Therapists.Create(r.Context(), in)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.Created(w, r, t)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := v1.PathID(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	t, err := h.Therapists.Get(r.Context(), id)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, t)
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
	t, err := h.Therapists.Update(r.Context(), id, fields)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, t)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := v1.PathID(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	if err := h.Therapists.Delete(r.Context(), id); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.Message(w, r, "therapist deleted")
}

func (h *Handler) BatchUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.BatchInput
	if err := v1.Decode(r, &in); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	n, err := h.Therapists.BatchUpdate(r.Context(), in)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, map[string]int{"updated": n})
}

// AssignPatients replaces the therapist's patient set with patientIds.
func (h *Handler) AssignPatients(w http.ResponseWriter, r *http.Request) {
	id, err := v1.PathID(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	var in struct {
		PatientIDs []string `json:"patientIds"`
	}
	if err := v1.Decode(r, &in); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	ids := make([]uuid.UUID, 0, len(in.PatientIDs))
	for i, raw := range in.PatientIDs {
		pid, err := uuid.Parse(raw)
		if err != nil {
			h.Resp.Fail(w, r, domain.InvalidField(fmt.Sprintf("patientIds.%d", i), "must be a valid id"))
			return
		}
		ids = append(ids, pid)
	}
	res, err := h.Therapists.AssignPatients(r.Context(), id, ids)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, res)
}

func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	id, err := v1.PathID(r)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	var in struct {
		Availability []domain.AvailabilitySlot `json:"availability"`
	}
	if err := v1.Decode(r, &in); err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	t, err := h.Therapists.SetAvailability(r.Context(), id, in.Availability)
	if err != nil {
		h.Resp.Fail(w, r, err)
		return
	}
	h.Resp.OK(w, r, t)
}
