package bigquery

import (
	"errors"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// IsRetryable reports whether an insert failure is worth redelivering. Schema
// and permission errors are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var multi bigquery.PutMultiError
	if errors.As(err, &multi) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		switch apiErr.Code {
		case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
			return false
		}
	}
	return true
}

// IsTransient is the strict form used for in-process retries: only errors
// the API marks as throttling or temporary unavailability qualify.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var multi bigquery.MultiError
	if errors.As(err, &multi) {
		return allTransient(multi)
	}

	var rowErr *bigquery.RowInsertionError
	if errors.As(err, &rowErr) && rowErr != nil {
		return allTransient(rowErr.Errors)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusRequestTimeout,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Aborted, codes.DeadlineExceeded, codes.Internal,
			codes.ResourceExhausted, codes.Unavailable:
			return true
		}
	}
	return false
}

func allTransient(errs bigquery.MultiError) bool {
	if len(errs) == 0 {
		return false
	}
	for _, inner := range errs {
		if !IsTransient(inner) {
			return false
		}
	}
	return true
}
