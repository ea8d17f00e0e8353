package domain

import "time"

// User is the profile held by the user service.
type User struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	Role      string
	CreatedAt time.Time
}
