package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
		expose    bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true, expose: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required", expose: true},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied", expose: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found", expose: true},
		{code: CodeStateConflict, status: http.StatusConflict, publicMsg: "state transition disallowed", detailsOK: true, expose: true},
		{code: CodePayment, status: http.StatusPaymentRequired, publicMsg: "payment failed", detailsOK: true, expose: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
		if meta.ExposeMessage != tt.expose {
			t.Fatalf("code %s expected expose %v got %v", tt.code, tt.expose, meta.ExposeMessage)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestAsFindsWrappedError(t *testing.T) {
	base := New(CodeNotFound, "order not found")
	wrapped := fmt.Errorf("lookup: %w", base)

	typed := As(wrapped)
	if typed == nil || typed.Code() != CodeNotFound {
		t.Fatalf("expected typed not found error, got %#v", typed)
	}
	if !IsCode(wrapped, CodeNotFound) {
		t.Fatal("expected IsCode to match")
	}
	if IsCode(stdErrors.New("plain"), CodeNotFound) {
		t.Fatal("plain error should not match")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("card_declined")
	err := Wrap(CodePayment, cause, "your card was declined")
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if err.Message() != "your card was declined" {
		t.Fatalf("unexpected message %q", err.Message())
	}
}

func TestDumpExtractsPgxFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", TableName: "users", Message: "duplicate key"}
	err := Wrap(CodeConflict, pgErr, "email already registered")

	dump := Dump(err)
	if dump.PGCode != "23505" || dump.PGConstraint != "users_email_key" {
		t.Fatalf("unexpected dump %+v", dump)
	}
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected chain of 2, got %v", dump.Chain)
	}

	fields := dump.Fields()
	if fields["pg_table"] != "users" {
		t.Fatalf("expected pg_table field, got %v", fields)
	}
	if _, ok := fields["pg_detail"]; ok {
		t.Fatal("empty pg_detail should be omitted")
	}
}
