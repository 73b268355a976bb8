package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-report-portal/internal/dto"
	"github.com/noah-isme/sma-report-portal/internal/models"
	"github.com/noah-isme/sma-report-portal/internal/service"
	"github.com/noah-isme/sma-report-portal/pkg/response"
)

type reservationProvider interface {
	Board(ctx context.Context, viewer service.Viewer) (*service.ReservationBoard, error)
	Rooms(ctx context.Context, viewer service.Viewer) ([]models.Room, error)
	Create(ctx context.Context, viewer service.Viewer, req dto.ReservationRequest) ([]service.ReservationRow, error)
}

// ReservationHandler exposes room booking endpoints.
type ReservationHandler struct {
	reservations reservationProvider
}

// NewReservationHandler constructs handler.
func NewReservationHandler(reservations reservationProvider) *ReservationHandler {
	return &ReservationHandler{reservations: reservations}
}

// Rooms godoc
// @Summary List bookable rooms
// @Tags Reservations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *ReservationHandler) Rooms(c *gin.Context) {
	viewer, ok := viewerOrAbort(c)
	if !ok {
		return
	}
	rooms, err := h.reservations.Rooms(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms)
}

// Board godoc
// @Summary List rooms with their reservations
// @Tags Reservations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reservations [get]
func (h *ReservationHandler) Board(c *gin.Context) {
	viewer, ok := viewerOrAbort(c)
	if !ok {
		return
	}
	board, err := h.reservations.Board(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, board)
}

// Create godoc
// @Summary Book a room
// @Tags Reservations
// @Accept json
// @Produce json
// @Param payload body dto.ReservationRequest true "Reservation payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reservations [post]
func (h *ReservationHandler) Create(c *gin.Context) {
	viewer, ok := viewerOrAbort(c)
	if !ok {
		return
	}
	var req dto.ReservationRequest
	if !bindJSON(c, &req) {
		return
	}
	rows, err := h.reservations.Create(c.Request.Context(), viewer, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rows)
}
