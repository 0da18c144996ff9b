package app

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrAmbiguous         = errors.New("ambiguous collection")
	ErrNoContent         = errors.New("no content available yet")
	ErrUsernameExists    = errors.New("username already exists")
	ErrEmailExists       = errors.New("email already exists")
	ErrOrganizationTaken = errors.New("organization name already taken")
	ErrInvalidCredential = errors.New("invalid username or password")
)

// AmbiguousError reports the collections that tied for the most matching
// documents during inference.
type AmbiguousError struct {
	Tokens  []string
	Matches int64
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%s: %d collections match %d documents each (%s)",
		ErrAmbiguous, len(e.Tokens), e.Matches, strings.Join(e.Tokens, ", "))
}

func (e *AmbiguousError) Is(target error) bool {
	return target == ErrAmbiguous
}
