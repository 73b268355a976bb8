package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-portal/internal/dto"
	"github.com/noah-isme/sma-report-portal/internal/models"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
	"github.com/noah-isme/sma-report-portal/pkg/signing"
	"github.com/noah-isme/sma-report-portal/pkg/validation"
)

// ConfirmationRepository persists pending delete confirmations.
type ConfirmationRepository interface {
	Save(ctx context.Context, confirmation models.DeleteConfirmation, ttl time.Duration) error
	Take(ctx context.Context, id string) (*models.DeleteConfirmation, error)
	Discard(ctx context.Context, id string) error
}

// DeletionService runs deletes in two phases over HTTP: a request issues a
// signed single-use token, and only confirming that token sends the DELETE.
type DeletionService struct {
	store     ConfirmationRepository
	signer    *signing.Signer
	deleter   recordDeleter
	validator *validation.Validator
	logger    *zap.Logger
}

// NewDeletionService constructs the deletion service.
func NewDeletionService(store ConfirmationRepository, signer *signing.Signer, deleter recordDeleter, validator *validation.Validator, logger *zap.Logger) *DeletionService {
	if validator == nil {
		validator = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeletionService{store: store, signer: signer, deleter: deleter, validator: validator, logger: logger}
}

// Request marks a record as the delete candidate and returns the token that
// confirms it.
func (s *DeletionService) Request(ctx context.Context, viewer Viewer, collection models.Collection, recordID int64, req dto.DeleteRequest) (*dto.DeleteConfirmationResponse, error) {
	if err := ensureAllowed(viewer.Role, collection, ActionDelete); err != nil {
		return nil, err
	}
	if recordID <= 0 {
		return nil, validation.FieldError("id", "id must be greater than 0")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	token, expiresAt, err := s.signer.Generate(id, string(collection), strconv.FormatInt(recordID, 10), strconv.FormatInt(req.StudentID, 10))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue confirmation")
	}

	confirmation := models.DeleteConfirmation{
		ID:             id,
		Collection:     collection,
		RecordID:       recordID,
		StudentID:      req.StudentID,
		CredentialHash: credentialHash(viewer.Credential),
		ExpiresAt:      expiresAt,
	}
	if err := s.store.Save(ctx, confirmation, s.signer.TTL()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store confirmation")
	}

	s.logger.Info("delete requested",
		zap.String("collection", string(collection)),
		zap.Int64("record_id", recordID),
		zap.Int64("student_id", req.StudentID),
		zap.Time("expires_at", expiresAt),
	)

	return &dto.DeleteConfirmationResponse{
		Token:      token,
		Collection: string(collection),
		RecordID:   recordID,
		StudentID:  req.StudentID,
		ExpiresAt:  expiresAt,
	}, nil
}

// Confirm consumes the token, issues the DELETE and returns the refetched
// collection. A failed DELETE still consumes the token.
func (s *DeletionService) Confirm(ctx context.Context, viewer Viewer, token string) (*CollectionRefresh, error) {
	id, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	confirmation, err := s.store.Take(ctx, id)
	if err != nil {
		return nil, confirmationError(err)
	}
	if subtle.ConstantTimeCompare([]byte(confirmation.CredentialHash), []byte(credentialHash(viewer.Credential))) != 1 {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "confirmation was issued to another session")
	}

	refresh, err := s.deleter.Delete(ctx, viewer, confirmation.Collection, confirmation.RecordID, confirmation.StudentID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("delete confirmed",
		zap.String("collection", string(confirmation.Collection)),
		zap.Int64("record_id", confirmation.RecordID),
	)
	return refresh, nil
}

// Cancel discards a pending confirmation. Nothing is sent to the backend.
func (s *DeletionService) Cancel(ctx context.Context, token string) error {
	id, err := s.parse(token)
	if err != nil {
		return err
	}
	if err := s.store.Discard(ctx, id); err != nil {
		return confirmationError(err)
	}
	return nil
}

func (s *DeletionService) parse(token string) (string, error) {
	id, _, _, err := s.signer.Parse(token)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, signing.ErrExpired):
		return "", appErrors.Clone(appErrors.ErrConfirmationInvalid, "confirmation expired")
	default:
		return "", appErrors.Clone(appErrors.ErrConfirmationInvalid, "confirmation token invalid")
	}
}

func confirmationError(err error) error {
	if appErrors.IsCode(err, appErrors.ErrConfirmationInvalid.Code) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read confirmation")
}

func credentialHash(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}
