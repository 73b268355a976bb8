package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffSectionsIgnoresGeneratedAt(t *testing.T) {
	a := []byte(`{"data":{"variant":"full","grades":{"rows":[]},"generatedAt":"2024-01-01T00:00:00Z"}}`)
	b := []byte(`{"data":{"variant":"full","grades":{"rows":[]},"generatedAt":"2024-06-01T00:00:00Z"}}`)

	diff, err := diffSections(a, b)
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestDiffSectionsNamesChangedFields(t *testing.T) {
	a := []byte(`{"data":{"variant":"full","warnings":{"rows":[{"id":1}]},"grades":{"rows":[]}}}`)
	b := []byte(`{"data":{"variant":"full","warnings":{"rows":[]},"suspensions":{"rows":[]},"grades":{"rows":[]}}}`)

	diff, err := diffSections(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"suspensions", "warnings"}, diff)
}

func TestCompareTargetForwardsCredentials(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization")+"|"+r.URL.RequestURI())
		_, _ = w.Write([]byte(`{"data":{"variant":"guardian"}}`))
	}))
	defer srv.Close()

	d := deployment{base: srv.URL + "/api/v1", token: "tok"}
	comp := compareTarget(srv.Client(), d, d, target{StudentID: 7, Variant: "guardian"})

	require.NoError(t, comp.Error)
	assert.True(t, comp.matches())
	assert.Equal(t, []string{
		"Bearer tok|/api/v1/reports/students/7?variant=guardian",
		"Bearer tok|/api/v1/reports/students/7?variant=guardian",
	}, seen)
}
