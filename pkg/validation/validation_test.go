package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
)

type samplePayload struct {
	StudentID int64  `json:"student_id" validate:"required,gt=0"`
	Reason    string `json:"reason" validate:"required"`
	Internal  string `json:"-" validate:"omitempty"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := New().Struct(samplePayload{})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Equal(t, []string{"reason is a required field"}, appErr.Fields["reason"])
	assert.Equal(t, []string{"student_id is a required field"}, appErr.Fields["student_id"])
	assert.Equal(t, "reason is a required field, student_id is a required field", appErr.Message)
}

func TestStructAcceptsValidPayload(t *testing.T) {
	assert.NoError(t, New().Struct(samplePayload{StudentID: 3, Reason: "late"}))
}

func TestTranslateFallsBackToDetail(t *testing.T) {
	fields := New().Translate(errors.New("unexpected EOF"))
	assert.Equal(t, map[string][]string{"detail": {"unexpected EOF"}}, fields)
}
