package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidOrigin = errors.New("invalid origin (must be user or predefined)")
)

// Origin tells user-created habits apart from the predefined demo set.
type Origin string

const (
	OriginUser       Origin = "user"
	OriginPredefined Origin = "predefined"
)

func ParseOrigin(raw string) (Origin, error) {
	o := Origin(strings.ToLower(strings.TrimSpace(raw)))
	if err := o.Validate(); err != nil {
		return "", fmt.Errorf("%w: %q", err, raw)
	}
	return o, nil
}

func (o Origin) Validate() error {
	switch o {
	case OriginUser, OriginPredefined:
		return nil
	default:
		return ErrInvalidOrigin
	}
}

// Scope is the (origin, active) filter every listing and analysis query takes.
// The zero value is invalid; there is no default scope.
type Scope struct {
	Origin Origin
	Active bool
}

func NewScope(origin Origin, active bool) (Scope, error) {
	if err := origin.Validate(); err != nil {
		return Scope{}, err
	}
	return Scope{Origin: origin, Active: active}, nil
}

func (s Scope) Validate() error {
	return s.Origin.Validate()
}

func (s Scope) Matches(h *Habit) bool {
	return h.Origin == s.Origin && h.Active == s.Active
}

func (s Scope) String() string {
	state := "inactive"
	if s.Active {
		state = "active"
	}
	return fmt.Sprintf("%s:%s", s.Origin, state)
}
