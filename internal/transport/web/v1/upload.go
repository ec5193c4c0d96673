package v1

import (
	"encoding/json"
	"mime/multipart"
	"net/http"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
	"github.com/Victorkib/mentacare-backend-admin/internal/service"
)

// MaxMultipartMemory is the part of a multipart body kept in memory; the
// rest spills to temporary files.
const MaxMultipartMemory = 16 << 20

// Multipart parses a multipart request and opens the files sent under field.
// A JSON document sent in the "meta" part is decoded into meta when both are
// present. The returned close function releases the files.
func Multipart(r *http.Request, field string, meta any) ([]service.Upload, func(), error) {
	if err := r.ParseMultipartForm(MaxMultipartMemory); err != nil {
		return nil, func() {}, domain.Invalid("malformed multipart body")
	}
	form := r.MultipartForm
	release := func() { _ = form.RemoveAll() }

	if raw := r.FormValue("meta"); raw != "" && meta != nil {
		if err := json.Unmarshal([]byte(raw), meta); err != nil {
			release()
			return nil, func() {}, domain.InvalidField("meta", "must be a JSON object")
		}
	}

	var (
		uploads []service.Upload
		opened  []multipart.File
	)
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
		release()
	}
	for _, fh := range form.File[field] {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, domain.Internal(err, "open uploaded file")
		}
		opened = append(opened, f)
		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}
		uploads = append(uploads, service.Upload{
			Name:        fh.Filename,
			ContentType: ct,
			Size:        fh.Size,
			Body:        f,
		})
	}
	return uploads, closeAll, nil
}
