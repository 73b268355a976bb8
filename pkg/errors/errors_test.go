package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(fmt.Errorf("boom"))
	require.NotNil(t, err)
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Nil(t, FromError(nil))
}

func TestCloneKeepsSentinelIdentity(t *testing.T) {
	clone := Clone(ErrForbidden, "teachers cannot issue warnings")
	assert.True(t, errors.Is(clone, ErrForbidden))
	assert.False(t, errors.Is(clone, ErrNotFound))
	assert.Equal(t, "forbidden", ErrForbidden.Message)

	wrapped := fmt.Errorf("outer: %w", clone)
	assert.True(t, IsCode(wrapped, "FORBIDDEN"))
}

func TestWithFieldsJoinsMessagesInKeyOrder(t *testing.T) {
	fields := map[string][]string{
		"reason":           {"This field may not be blank."},
		"end_date":         {"End date must not precede start date."},
		"non_field_errors": {"Duplicate entry."},
	}
	err := WithFields(ErrValidation, fields, "")
	assert.Equal(t, "End date must not precede start date., Duplicate entry., This field may not be blank.", err.Message)
	assert.Equal(t, fields, err.Fields)
	assert.Nil(t, ErrValidation.Fields)
}
