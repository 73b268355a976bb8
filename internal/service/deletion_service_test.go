package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-report-portal/internal/dto"
	"github.com/noah-isme/sma-report-portal/internal/models"
	"github.com/noah-isme/sma-report-portal/internal/repository"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
	"github.com/noah-isme/sma-report-portal/pkg/signing"
)

func newDeletionFixture(t *testing.T) (*DeletionService, *backendStub) {
	t.Helper()
	stub := newBackendStub()
	stub.warnings = []models.Warning{
		{ID: 1, Date: models.NewDate(2024, time.April, 2), Reason: "Late"},
		{ID: 2, Date: models.NewDate(2024, time.April, 9), Reason: "Phone"},
	}
	svc := NewDeletionService(
		repository.NewMemoryConfirmationRepository(),
		signing.NewSigner("test-secret", time.Minute),
		NewMutationService(stub, nil, nil),
		nil,
		nil,
	)
	return svc, stub
}

func TestDeletionRequestSendsNothing(t *testing.T) {
	svc, stub := newDeletionFixture(t)

	resp, err := svc.Request(context.Background(), coordinatorViewer, models.CollectionWarnings, 2, dto.DeleteRequest{StudentID: 7})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "warnings", resp.Collection)
	assert.Equal(t, int64(2), resp.RecordID)
	assert.Zero(t, stub.callCount("delete_warnings"))
}

func TestDeletionConfirmExecutesOnce(t *testing.T) {
	svc, stub := newDeletionFixture(t)
	ctx := context.Background()

	resp, err := svc.Request(ctx, coordinatorViewer, models.CollectionWarnings, 2, dto.DeleteRequest{StudentID: 7})
	require.NoError(t, err)

	refresh, err := svc.Confirm(ctx, coordinatorViewer, resp.Token)
	require.NoError(t, err)
	require.Len(t, refresh.Warnings.Rows, 1)
	assert.Equal(t, []int64{2}, stub.deleted)

	_, err = svc.Confirm(ctx, coordinatorViewer, resp.Token)
	assert.True(t, appErrors.IsCode(err, "CONFIRMATION_INVALID"))
	assert.Equal(t, 1, stub.callCount("delete_warnings"))
}

func TestDeletionCancelLeavesRecordsUntouched(t *testing.T) {
	svc, stub := newDeletionFixture(t)
	ctx := context.Background()

	resp, err := svc.Request(ctx, coordinatorViewer, models.CollectionWarnings, 1, dto.DeleteRequest{StudentID: 7})
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, resp.Token))

	_, err = svc.Confirm(ctx, coordinatorViewer, resp.Token)
	assert.True(t, appErrors.IsCode(err, "CONFIRMATION_INVALID"))
	assert.Empty(t, stub.deleted)
	assert.Len(t, stub.warnings, 2)
}

func TestDeletionRejectsForeignOrTamperedTokens(t *testing.T) {
	svc, stub := newDeletionFixture(t)
	ctx := context.Background()

	_, err := svc.Confirm(ctx, coordinatorViewer, "garbage")
	assert.True(t, appErrors.IsCode(err, "CONFIRMATION_INVALID"))

	resp, err := svc.Request(ctx, coordinatorViewer, models.CollectionWarnings, 1, dto.DeleteRequest{StudentID: 7})
	require.NoError(t, err)
	other := Viewer{Credential: "someone-else", Role: models.RoleDirector}
	_, err = svc.Confirm(ctx, other, resp.Token)
	assert.True(t, appErrors.IsCode(err, "FORBIDDEN"))
	assert.Empty(t, stub.deleted)
}

func TestDeletionRequestIsRoleGated(t *testing.T) {
	svc, _ := newDeletionFixture(t)

	_, err := svc.Request(context.Background(), Viewer{Credential: "g", Role: models.RoleGuardian}, models.CollectionWarnings, 1, dto.DeleteRequest{StudentID: 7})
	assert.True(t, appErrors.IsCode(err, "FORBIDDEN"))

	_, err = svc.Request(context.Background(), coordinatorViewer, models.CollectionWarnings, 1, dto.DeleteRequest{})
	assert.True(t, appErrors.IsCode(err, "VALIDATION_ERROR"))
}
