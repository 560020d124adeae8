package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/delicado-shop/delicado-api/internal/reports"
)

type fakeReports struct {
	days int
}

func (f *fakeReports) Summary(ctx context.Context, days int) (*reports.Report, error) {
	f.days = days
	return &reports.Report{Days: days}, nil
}

func TestSalesReport(t *testing.T) {
	cases := []struct {
		name     string
		query    string
		wantCode int
		wantDays int
	}{
		{name: "default window", query: "", wantCode: http.StatusOK, wantDays: reports.DefaultDays},
		{name: "explicit window", query: "?days=7", wantCode: http.StatusOK, wantDays: 7},
		{name: "zero rejected", query: "?days=0", wantCode: http.StatusBadRequest},
		{name: "too large", query: "?days=366", wantCode: http.StatusBadRequest},
		{name: "not numeric", query: "?days=week", wantCode: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeReports{}
			rec := httptest.NewRecorder()
			SalesReport(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/reports"+tc.query, nil))
			assert.Equal(t, tc.wantCode, rec.Code)
			if tc.wantCode == http.StatusOK {
				assert.Equal(t, tc.wantDays, svc.days)
			}
		})
	}
}
