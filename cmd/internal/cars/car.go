// Package cars stores cars with soft delete and serves the /cars endpoints.
//
// A car is never physically removed. SoftDelete flips deleted_flag from false to
// true once; List hides flagged rows; Update still reaches them by id.
package cars

import "time"

// Car is a stored vehicle.
type Car struct {
	ID          string    `json:"id"`
	Make        string    `json:"make"`
	Model       string    `json:"model"`
	Year        int       `json:"year"`
	DeletedFlag bool      `json:"deleted_flag"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CarInput is the writable part of a car.
type CarInput struct {
	Make  string
	Model string
	Year  int
}
