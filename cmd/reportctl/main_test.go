package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-portal/internal/models"
	"github.com/noah-isme/sma-report-portal/pkg/config"
)

type fakeBackend struct {
	mu       sync.Mutex
	warnings string
	deleted  []string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodDelete:
		b.deleted = append(b.deleted, r.URL.Path)
		b.warnings = `[]`
		w.WriteHeader(http.StatusNoContent)
	case r.URL.Path == "/students/7":
		_, _ = w.Write([]byte(`{"id":7,"name":"Ana Souza","enrollment_number":"2024001","class":{"id":1,"name":"1A"},"status":"active"}`))
	case r.URL.Path == "/grades":
		_, _ = w.Write([]byte(`[{"id":1,"student_id":7,"subject_name":"Math","bimester":"1st bimester","value":"7.5"}]`))
	case r.URL.Path == "/warnings":
		_, _ = w.Write([]byte(b.warnings))
	default:
		_, _ = w.Write([]byte(`[]`))
	}
}

func testConfig(url string) *config.Config {
	return &config.Config{Backend: config.BackendConfig{BaseURL: url, Timeout: 5 * time.Second, AuthScheme: "Bearer"}}
}

func TestRunPrintsReport(t *testing.T) {
	srv := httptest.NewServer(&fakeBackend{warnings: `[]`})
	defer srv.Close()

	var out bytes.Buffer
	err := run(context.Background(), testConfig(srv.URL), zap.NewNop(), options{studentID: 7, variant: "full", token: "tok"}, strings.NewReader(""), &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Ana Souza")
	assert.Contains(t, text, "Math")
	assert.Contains(t, text, "7.50")
	assert.Contains(t, text, "no warnings recorded")
}

func TestRunDeleteAsksForConfirmation(t *testing.T) {
	backend := &fakeBackend{warnings: `[{"id":12,"student_id":7,"date":"2024-03-01","reason":"Late"}]`}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	opts := options{studentID: 7, variant: "full", token: "tok", role: "coordenador", remove: "warnings:12"}

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), testConfig(srv.URL), zap.NewNop(), opts, strings.NewReader("n\n"), &out))
	assert.Contains(t, out.String(), "cancelled")
	assert.Empty(t, backend.deleted)

	out.Reset()
	require.NoError(t, run(context.Background(), testConfig(srv.URL), zap.NewNop(), opts, strings.NewReader("y\n"), &out))
	assert.Equal(t, []string{"/warnings/12/"}, backend.deleted)
	assert.Contains(t, out.String(), "deleted warnings 12")
}

func TestRunDeleteForbiddenForGuardian(t *testing.T) {
	srv := httptest.NewServer(&fakeBackend{warnings: `[{"id":12,"student_id":7,"date":"2024-03-01","reason":"Late"}]`})
	defer srv.Close()

	opts := options{studentID: 7, variant: "full", token: "tok", role: "responsavel", remove: "warnings:12", yes: true}
	err := run(context.Background(), testConfig(srv.URL), zap.NewNop(), opts, strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete not available")
}

func TestParseTarget(t *testing.T) {
	collection, id, err := parseTarget("suspensions:4")
	require.NoError(t, err)
	assert.Equal(t, models.CollectionSuspensions, collection)
	assert.Equal(t, int64(4), id)

	for _, raw := range []string{"warnings", "notes:1", "grades:0", "grades:x"} {
		_, _, err := parseTarget(raw)
		assert.Error(t, err, raw)
	}
}
