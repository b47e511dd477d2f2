package util

import (
	"errors"
	"strings"
)

// ErrValidation is a user-facing error for malformed input (bad scores,
// overlapping teams, duplicate names). Its message is safe to display as-is.
type ErrValidation string

func (e ErrValidation) Error() string {
	return string(e)
}

// ErrPermission is a user-facing error for operations attempted by someone
// who has no say in the matter (eg. approving a match you did not play in).
type ErrPermission string

func (e ErrPermission) Error() string {
	return string(e)
}

// IsPublicError returns true if the error message can be shown to the user
// who triggered it rather than being logged and swallowed.
func IsPublicError(err error) bool {
	var v ErrValidation
	var p ErrPermission

	return errors.As(err, &v) || errors.As(err, &p)
}

func ConcatErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	filtered := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err.Error())
		}
	}

	if len(filtered) == 0 {
		return nil
	}

	return errors.New(strings.Join(filtered, "; "))
}
