package model

import "time"

// Show is a single scheduled screening of a movie. The seat occupancy
// map lives in the show_seats table rather than on the show row itself;
// a seat label is present there only while held or booked, and removal
// must be explicit (expiry reaper or retention cleanup).
//
// Fields:
//  ID         – uuid primary key.
//  MovieID    – referenced movie (external catalog id).
//  StartsAt   – screening start time in UTC.
//  PriceCents – unit seat price in cents; booking amounts derive from it.
//  CreatedAt  – creation timestamp.
type Show struct {
	ID         string    `json:"id"`
	MovieID    string    `json:"movie_id"`
	StartsAt   time.Time `json:"starts_at"`
	PriceCents uint32    `json:"price_cents"`
	CreatedAt  time.Time `json:"-"`
}

// OccupiedSeat is one row of a show's occupancy map. UserID records who
// holds the seat and BookingID which booking put it there.
type OccupiedSeat struct {
	ShowID    string `json:"show_id"`
	SeatLabel string `json:"seat_label"`
	UserID    string `json:"user_id"`
	BookingID string `json:"booking_id"`
}
