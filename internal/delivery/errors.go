package delivery

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// Failure classes for platform calls.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrTransient = errors.New("platform failure")
)

// Error is a classified platform failure. errors.Is matches both the class
// and the underlying error.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Classify wraps err in an *Error carrying its failure class. HTTP 404
// maps to ErrNotFound, 403 to ErrForbidden, anything else to ErrTransient.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	return &Error{Kind: kindOf(err), Err: err}
}

// KindOf returns the failure class of err, or nil for a nil error.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return kindOf(err)
}

func kindOf(err error) error {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		switch rest.Response.StatusCode {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusForbidden:
			return ErrForbidden
		}
	}
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return ErrNotFound
	}
	return ErrTransient
}
