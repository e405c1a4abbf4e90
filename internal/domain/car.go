package domain

import "time"

// Car represents a single listing owned by a user.
type Car struct {
	ID          int64
	OwnerID     int64
	Title       string
	Description string
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Images      []CarImage
}

// CarImage captures a single stored upload attached to a car.
type CarImage struct {
	ID           int64
	CarID        int64
	FileName     string
	OriginalName string
	Size         int64
	ContentType  string
}
