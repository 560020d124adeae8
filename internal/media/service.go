// Package media validates admin image uploads and stores them in object storage.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
	"github.com/delicado-shop/delicado-api/pkg/logger"
)

// Kind groups uploads by what they illustrate.
type Kind string

const (
	KindProduct  Kind = "product"
	KindTemplate Kind = "template"
	KindPreview  Kind = "preview"
	KindContent  Kind = "content"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindProduct, KindTemplate, KindPreview, KindContent:
		return true
	}
	return false
}

type objectStore interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error)
}

// Service exposes image upload semantics.
type Service interface {
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
}

type UploadInput struct {
	Kind     Kind
	FileName string
	Body     io.Reader
	// UploadedBy is recorded in logs only.
	UploadedBy uuid.UUID
}

type UploadOutput struct {
	URL         string `json:"url"`
	Object      string `json:"object"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

type ServiceParams struct {
	Store    objectStore
	MaxBytes int64
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	store    objectStore
	maxBytes int64
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.MaxBytes <= 0 {
		return nil, fmt.Errorf("max upload bytes must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{store: params.Store, maxBytes: params.MaxBytes, logg: params.Logger, now: now}, nil
}

func (s *service) Upload(ctx context.Context, input UploadInput) (*UploadOutput, error) {
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid media kind")
	}
	if input.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}

	// read one byte past the cap to detect oversized bodies
	data, err := io.ReadAll(io.LimitReader(input.Body, s.maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "file must be at most %s", humanSize(s.maxBytes))
	}

	contentType, ext, err := sniffImage(data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	object := buildObjectKey(input.Kind, uuid.New(), input.FileName, ext, s.now())
	url, err := s.store.Upload(ctx, object, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upload")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"object":      object,
			"uploaded_by": input.UploadedBy.String(),
			"size_bytes":  len(data),
		})
		s.logg.Info(logCtx, "media.uploaded")
	}

	return &UploadOutput{
		URL:         url,
		Object:      object,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	}, nil
}

func buildObjectKey(kind Kind, id uuid.UUID, fileName, ext string, at time.Time) string {
	name := sanitizeFileName(strings.TrimSuffix(fileName, path.Ext(fileName)))
	if name == "" {
		name = id.String()
	} else {
		name = id.String()[:8] + "-" + name
	}
	return fmt.Sprintf("media/%s/%s/%s%s", kind, at.UTC().Format("2006/01"), name, ext)
}

func sanitizeFileName(name string) string {
	clean := path.Base(strings.TrimSpace(strings.ReplaceAll(name, "\\", "/")))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range strings.ToLower(clean) {
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}

func humanSize(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%d MB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}
