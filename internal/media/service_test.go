package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type stubStore struct {
	object      string
	contentType string
	body        []byte
	err         error
}

func (s *stubStore) Upload(_ context.Context, object, contentType string, body io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.object = object
	s.contentType = contentType
	s.body, _ = io.ReadAll(body)
	return "https://cdn.example.com/bucket/" + object, nil
}

func newService(t *testing.T, store *stubStore, max int64) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Store:    store,
		MaxBytes: max,
		Now:      func() time.Time { return time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestUploadStoresSniffedImage(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	svc := newService(t, store, 1<<20)

	out, err := svc.Upload(context.Background(), UploadInput{
		Kind:       KindProduct,
		FileName:   "Taza Roja.JPG",
		Body:       bytes.NewReader(pngHeader),
		UploadedBy: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if out.ContentType != "image/png" || store.contentType != "image/png" {
		t.Fatalf("expected sniffed png, got %q", out.ContentType)
	}
	if !strings.HasPrefix(out.Object, "media/product/2025/04/") || !strings.HasSuffix(out.Object, "-taza-roja.png") {
		t.Fatalf("unexpected object key %q", out.Object)
	}
	if out.URL != "https://cdn.example.com/bucket/"+out.Object {
		t.Fatalf("unexpected url %q", out.URL)
	}
	if !bytes.Equal(store.body, pngHeader) || out.SizeBytes != int64(len(pngHeader)) {
		t.Fatalf("stored body mismatch")
	}
}

func TestUploadRejectsNonImages(t *testing.T) {
	t.Parallel()

	svc := newService(t, &stubStore{}, 1<<20)
	_, err := svc.Upload(context.Background(), UploadInput{
		Kind:     KindTemplate,
		FileName: "notes.png",
		Body:     strings.NewReader("%PDF-1.7\n%fake pdf body"),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUploadEnforcesSizeCap(t *testing.T) {
	t.Parallel()

	svc := newService(t, &stubStore{}, 8)
	_, err := svc.Upload(context.Background(), UploadInput{Kind: KindProduct, Body: bytes.NewReader(pngHeader)})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUploadValidatesInput(t *testing.T) {
	t.Parallel()

	svc := newService(t, &stubStore{}, 1<<20)
	cases := []UploadInput{
		{Kind: "avatar", Body: bytes.NewReader(pngHeader)},
		{Kind: KindPreview},
		{Kind: KindPreview, Body: bytes.NewReader(nil)},
	}
	for _, in := range cases {
		if _, err := svc.Upload(context.Background(), in); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %+v, got %v", in, err)
		}
	}
}

func TestUploadStoreFailure(t *testing.T) {
	t.Parallel()

	svc := newService(t, &stubStore{err: errors.New("bucket unavailable")}, 1<<20)
	_, err := svc.Upload(context.Background(), UploadInput{Kind: KindContent, Body: bytes.NewReader(pngHeader)})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewService(ServiceParams{MaxBytes: 1}); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := NewService(ServiceParams{Store: &stubStore{}}); err == nil {
		t.Fatal("expected error without size cap")
	}
}

func TestSanitizeFileName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"../../etc/passwd": "passwd",
		"  Mi Foto  ":      "mi-foto",
		"...":              "",
		"a\\b\\c":          "c",
	}
	for in, want := range cases {
		if got := sanitizeFileName(in); got != want {
			t.Fatalf("sanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
