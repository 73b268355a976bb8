package models

import "time"

// Room is a bookable room or laboratory.
type Room struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Capacity int    `json:"capacity"`
}

// Reservation books a room for an interval.
type Reservation struct {
	ID       int64     `json:"id"`
	RoomID   int64     `json:"room_id"`
	RoomName string    `json:"room_name,omitempty"`
	UserName string    `json:"user_name,omitempty"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}
