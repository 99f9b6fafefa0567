package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xiaot623/gogo/agentcore/tests/testsvc"
)

func TestNewServerRoutes(t *testing.T) {
	f := testsvc.New(t)
	var logs bytes.Buffer
	e := NewServer(f.Service, slog.New(slog.NewTextHandler(&logs, nil)))

	tests := []struct {
		method string
		target string
		body   string
		code   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/v1/tools", "", http.StatusOK},
		{http.MethodGet, "/v1/models", "", http.StatusOK},
		{http.MethodGet, "/v1/projects/p1/session", "", http.StatusNotFound},
		{http.MethodPost, "/v1/turns", `{"project_id":"p1"}`, http.StatusBadRequest},
		{http.MethodGet, "/v1/checkpoints/ct_none", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}

	assert.Contains(t, logs.String(), "uri=/health")
}
