package utils

import "github.com/google/uuid"

// GenID returns a new opaque record id.
func GenID() string {
	return uuid.NewString()
}
