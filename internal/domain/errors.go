package domain

import (
	"errors"
	"fmt"
)

var (
	// validación
	ErrValidation      = errors.New("invalid input")
	ErrInvalidIdentity = errors.New("identity could not be resolved")

	// conflictos de negocio
	ErrAlreadyRegistered  = errors.New("user already registered in this event")
	ErrTeamFull           = errors.New("team is full")
	ErrEventClosed        = errors.New("event registration is closed")
	ErrAlreadyStopped     = errors.New("event already stopped")
	ErrSubstituteNotFound = errors.New("substitute not found")
	ErrTargetNotFound     = errors.New("target not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrEventNotFound      = errors.New("event not found")
	ErrMemberNotFound     = errors.New("member not found")

	// notificaciones
	ErrNotificationNotFound = errors.New("notification not found")
	ErrAlreadyResolved      = errors.New("notification already resolved")

	// concurrencia: se agotaron los reintentos CAS
	ErrTooManyConflicts = errors.New("too many concurrent updates, try again")
)

// TeamFullError lleva los slots libres para que el usuario reintente con un bloque menor.
type TeamFullError struct {
	Team      string
	FreeSlots int
}

func (e *TeamFullError) Error() string {
	return fmt.Sprintf("team %q is full (free slots: %d)", e.Team, e.FreeSlots)
}

func (e *TeamFullError) Is(target error) bool { return target == ErrTeamFull }

type AlreadyRegisteredError struct {
	Where Placement
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("already registered (%s)", e.Where)
}

func (e *AlreadyRegisteredError) Is(target error) bool { return target == ErrAlreadyRegistered }
