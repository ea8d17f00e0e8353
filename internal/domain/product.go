package domain

import "time"

// Product is a catalog entry served by the product service.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       float64
	Stock       int32
	Category    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductInput carries the mutable product fields for create and update.
type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Stock       int32
	Category    string
}
