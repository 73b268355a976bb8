package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-report-portal/internal/backend"
	"github.com/noah-isme/sma-report-portal/internal/dto"
	"github.com/noah-isme/sma-report-portal/internal/models"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
	"github.com/noah-isme/sma-report-portal/pkg/validation"
)

type reservationBackend interface {
	ListRooms(ctx context.Context, credential string) ([]models.Room, error)
	ListReservations(ctx context.Context, credential string) ([]models.Reservation, error)
	CreateReservation(ctx context.Context, credential string, payload interface{}) (*models.Reservation, error)
}

// ReservationRow is a display-ready reservation.
type ReservationRow struct {
	ID      int64     `json:"id"`
	RoomID  int64     `json:"roomId"`
	Room    string    `json:"room"`
	User    string    `json:"user,omitempty"`
	Start   string    `json:"start"`
	End     string    `json:"end"`
	StartAt time.Time `json:"startAt"`
	EndAt   time.Time `json:"endAt"`
}

// ReservationBoard lists rooms next to their reservations.
type ReservationBoard struct {
	Rooms        []models.Room    `json:"rooms"`
	Reservations []ReservationRow `json:"reservations"`
	CanReserve   bool             `json:"canReserve"`
}

// ReservationService lists and books rooms.
type ReservationService struct {
	backend   reservationBackend
	validator *validation.Validator
	logger    *zap.Logger
}

// NewReservationService constructs the reservation service.
func NewReservationService(backend reservationBackend, validator *validation.Validator, logger *zap.Logger) *ReservationService {
	if validator == nil {
		validator = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationService{backend: backend, validator: validator, logger: logger}
}

// CanReserve reports whether the role may book rooms.
func CanReserve(role models.Role) bool {
	return role.IsStaff() || role == models.RoleTeacher
}

// Board fetches rooms and reservations concurrently.
func (s *ReservationService) Board(ctx context.Context, viewer Viewer) (*ReservationBoard, error) {
	var (
		rooms        []models.Room
		reservations []models.Reservation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rooms, err = s.backend.ListRooms(gctx, viewer.Credential)
		return err
	})
	g.Go(func() error {
		var err error
		reservations, err = s.backend.ListReservations(gctx, viewer.Credential)
		return err
	})
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	sort.SliceStable(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return &ReservationBoard{
		Rooms:        rooms,
		Reservations: reservationRows(reservations, rooms),
		CanReserve:   CanReserve(viewer.Role),
	}, nil
}

// Rooms lists the bookable rooms.
func (s *ReservationService) Rooms(ctx context.Context, viewer Viewer) ([]models.Room, error) {
	rooms, err := s.backend.ListRooms(ctx, viewer.Credential)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms, nil
}

// Create books a room and returns the refetched reservations.
func (s *ReservationService) Create(ctx context.Context, viewer Viewer, req dto.ReservationRequest) ([]ReservationRow, error) {
	if !CanReserve(viewer.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role "+string(viewer.Role)+" cannot reserve rooms")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	payload := backend.ReservationPayload{
		RoomID: req.RoomID,
		Start:  req.Start.Format(time.RFC3339),
		End:    req.End.Format(time.RFC3339),
	}
	if _, err := s.backend.CreateReservation(ctx, viewer.Credential, payload); err != nil {
		s.logger.Info("reservation rejected", zap.Int64("room_id", req.RoomID), zap.Error(err))
		return nil, reservationError(err)
	}

	reservations, err := s.backend.ListReservations(ctx, viewer.Credential)
	if err != nil {
		return nil, refreshFailed("reservations", err)
	}
	return reservationRows(reservations, nil), nil
}

// reservationError reports overlap rejections, which arrive as bare
// non-field errors, as conflicts.
func reservationError(err error) error {
	appErr := appErrors.FromError(err)
	if appErr.Code == appErrors.ErrValidation.Code && len(appErr.Fields) == 1 {
		if _, ok := appErr.Fields["non_field_errors"]; ok {
			return appErrors.WithFields(appErrors.ErrConflict, appErr.Fields, "")
		}
	}
	return mutationError(err)
}

func reservationRows(reservations []models.Reservation, rooms []models.Room) []ReservationRow {
	names := make(map[int64]string, len(rooms))
	for _, r := range rooms {
		names[r.ID] = r.Name
	}
	sorted := append([]models.Reservation(nil), reservations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].Start.Before(sorted[j].Start)
		}
		return sorted[i].ID < sorted[j].ID
	})

	rows := make([]ReservationRow, 0, len(sorted))
	for _, r := range sorted {
		room := r.RoomName
		if room == "" {
			room = names[r.RoomID]
		}
		rows = append(rows, ReservationRow{
			ID:      r.ID,
			RoomID:  r.RoomID,
			Room:    room,
			User:    r.UserName,
			Start:   r.Start.Format(models.DisplayDateTimeLayout),
			End:     r.End.Format(models.DisplayDateTimeLayout),
			StartAt: r.Start,
			EndAt:   r.End,
		})
	}
	return rows
}
