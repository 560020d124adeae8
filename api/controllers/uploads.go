package controllers

import (
	"errors"
	"net/http"

	"github.com/delicado-shop/delicado-api/api/responses"
	"github.com/delicado-shop/delicado-api/internal/media"
	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
	"github.com/delicado-shop/delicado-api/pkg/logger"
)

const (
	uploadFormField = "file"
	// multipart framing on top of the file itself
	uploadFormOverhead = 1 << 20
)

// AdminUpload accepts multipart/form-data with a "file" part and a "kind"
// field (product, template, preview, content) and returns the public URL.
func AdminUpload(svc media.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+uploadFormOverhead)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "upload too large"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, header, err := r.FormFile(uploadFormField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "file is required"))
			return
		}
		defer file.Close()

		out, err := svc.Upload(r.Context(), media.UploadInput{
			Kind:       media.Kind(r.FormValue("kind")),
			FileName:   header.Filename,
			Body:       file,
			UploadedBy: principal.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, out)
	}
}
