package serrors

import "fmt"

// BaseError is an error with a stable machine-readable code and an i18n key
// that API surfaces can hand to clients.
type BaseError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	LocaleKey string `json:"locale_key,omitempty"`
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{
		Code:      code,
		Message:   message,
		LocaleKey: localeKey,
	}
}

func (e *BaseError) Error() string {
	return e.Message
}

// Is matches any *BaseError carrying the same code, so wrapped copies and
// sentinel values compare equal under errors.Is.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrapf returns a new error that prints the formatted detail but still
// matches e under errors.Is / errors.As.
func (e *BaseError) Wrapf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{e}, args...)...)
}
