package factory

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrMissingRequiredValue = errors.New("cannot be missing")
	ErrEmptyRequiredValue   = errors.New("cannot be empty")
)

// RequiredValueError names the constructor argument that was missing or
// empty. It matches ErrMissingRequiredValue or ErrEmptyRequiredValue with
// errors.Is.
type RequiredValueError struct {
	Param string
	Err   error
}

func (e *RequiredValueError) Error() string {
	return fmt.Sprintf("%s %s", e.Param, e.Err)
}

func (e *RequiredValueError) Unwrap() error {
	return e.Err
}

func cannotBeMissing(param string) error {
	return &RequiredValueError{Param: param, Err: ErrMissingRequiredValue}
}

func cannotBeEmpty(param string) error {
	return &RequiredValueError{Param: param, Err: ErrEmptyRequiredValue}
}
