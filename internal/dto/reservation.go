package dto

import "time"

// ReservationRequest books a room for an interval.
type ReservationRequest struct {
	RoomID int64     `json:"roomId" validate:"required,gt=0"`
	Start  time.Time `json:"start" validate:"required"`
	End    time.Time `json:"end" validate:"required,gtfield=Start"`
}
