package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-report-portal/internal/models"
	"github.com/noah-isme/sma-report-portal/pkg/config"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
	"github.com/noah-isme/sma-report-portal/pkg/middleware/requestid"
)

type observation struct {
	resource string
	outcome  string
}

type observerStub struct {
	mu   sync.Mutex
	seen []observation
}

func (o *observerStub) ObserveFetch(resource, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, observation{resource: resource, outcome: outcome})
}

func newTestClient(t *testing.T, handler http.HandlerFunc, scheme string) (*Client, *observerStub) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	obs := &observerStub{}
	cfg := config.BackendConfig{BaseURL: srv.URL + "/", Timeout: time.Second, AuthScheme: scheme}
	return NewClient(cfg, nil, obs, nil), obs
}

func TestClientForwardsCredentialAndRequestID(t *testing.T) {
	var gotAuth, gotReqID, gotPath, gotQuery string
	client, obs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get(requestid.HeaderKey)
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[{"id":1,"student_id":7,"subject_name":"Math","bimester":"1st bimester","value":"7.50"}]`))
	}, "Token")

	ctx := requestid.WithValue(context.Background(), "req-42")
	grades, err := client.ListGrades(ctx, "abc", 7)
	require.NoError(t, err)
	require.Len(t, grades, 1)

	assert.Equal(t, "Token abc", gotAuth)
	assert.Equal(t, "req-42", gotReqID)
	assert.Equal(t, "/grades", gotPath)
	assert.Equal(t, "student_id=7", gotQuery)

	value, ok := grades[0].Value.Float()
	require.True(t, ok)
	assert.Equal(t, 7.5, value)
	assert.Equal(t, []observation{{resource: "grades", outcome: "ok"}}, obs.seen)
}

func TestClientDecodesPaginatedLists(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":1,"next":null,"results":[{"id":3,"student_id":7,"date":"2024-03-05","reason":"Late"}]}`))
	}, "")

	warnings, err := client.ListWarnings(context.Background(), "abc", 7)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "05/03/2024", warnings[0].Date.Display())
}

func TestGetStudentMapsStatuses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		code   string
		msg    string
	}{
		{name: "not found", status: http.StatusNotFound, code: "NOT_FOUND", msg: "student not found"},
		{name: "unauthorized", status: http.StatusUnauthorized, code: "UNAUTHORIZED", msg: "not authorized"},
		{name: "forbidden", status: http.StatusForbidden, code: "UNAUTHORIZED", msg: "not authorized"},
		{name: "server error", status: http.StatusInternalServerError, code: "UPSTREAM_UNAVAILABLE", msg: "school backend unavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"detail":"nope"}`))
			}, "")

			student, err := client.GetStudent(context.Background(), "abc", 9)
			require.Error(t, err)
			assert.Nil(t, student)
			appErr := appErrors.FromError(err)
			assert.Equal(t, tc.code, appErr.Code)
			assert.Equal(t, tc.msg, appErr.Message)
		})
	}
}

func TestCreateSurfacesFieldErrorsVerbatim(t *testing.T) {
	var body map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/suspensions/", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"end_date":["End date must not precede start date."],"reason":["This field may not be blank."]}`))
	}, "")

	err := client.Create(context.Background(), "abc", models.CollectionSuspensions, map[string]interface{}{"student_id": 7}, nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Equal(t, "End date must not precede start date., This field may not be blank.", appErr.Message)
	assert.Contains(t, appErr.Fields, "end_date")
	assert.EqualValues(t, 7, body["student_id"])
}

func TestUpdateAndDeleteUseTrailingSlashPaths(t *testing.T) {
	var calls []string
	var mu sync.Mutex
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(`{"id":4}`))
	}, "")

	require.NoError(t, client.Update(context.Background(), "abc", models.CollectionWarnings, 4, map[string]string{"reason": "x"}, nil))
	require.NoError(t, client.Delete(context.Background(), "abc", models.CollectionWarnings, 4))
	assert.Equal(t, []string{"PUT /warnings/4/", "DELETE /warnings/4/"}, calls)
}

func TestClientReturnsContextErrorWhenCanceled(t *testing.T) {
	release := make(chan struct{})
	client, obs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	}, "")
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.ListAbsences(ctx, "abc", 1)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, obs.seen, 1)
	assert.Equal(t, "canceled", obs.seen[0].outcome)
}

func TestReportPDFReturnsRawBytes(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/students/12/report/pdf", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}, "")

	body, err := client.ReportPDF(context.Background(), "abc", 12)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))
}

func TestDecodeErrorBodyHandlesBareList(t *testing.T) {
	detail, fields := decodeErrorBody([]byte(`["Room already booked for this interval."]`))
	assert.Empty(t, detail)
	assert.Equal(t, map[string][]string{"non_field_errors": {"Room already booked for this interval."}}, fields)
}
