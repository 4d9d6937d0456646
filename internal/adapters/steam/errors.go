package steam

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("steam: not found")
	ErrNoAPIKey = errors.New("steam: api key not configured")
)

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("steam api status %d: %s", e.Status, e.Body)
}
