package builder

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBuilderUsed is returned when Parse is called a second time.
	ErrBuilderUsed = errors.New("each ConfigBuilder can only be used once")
	// ErrUnknownSetting is matched by UnknownSettingError.
	ErrUnknownSetting = errors.New("unknown setting")
	// ErrConflictingAttributes is returned when mutually exclusive
	// attributes are set together.
	ErrConflictingAttributes = errors.New("conflicting attributes")
	// ErrMissingAttribute is returned when a required attribute is absent.
	ErrMissingAttribute = errors.New("missing attribute")
)

// ErrorContext locates a failure inside an assembly.
type ErrorContext struct {
	Resource string
	Activity string
	Object   string
}

func (c ErrorContext) String() string {
	var parts []string
	if c.Resource != "" {
		parts = append(parts, "resource "+c.Resource)
	}
	if c.Activity != "" {
		parts = append(parts, c.Activity)
	}
	if c.Object != "" {
		parts = append(parts, "at "+c.Object)
	}
	return strings.Join(parts, ", ")
}

// BuilderError is the error returned by Parse. Cause holds the original
// failure.
type BuilderError struct {
	Message string
	Context ErrorContext
	Cause   error
}

func (e *BuilderError) Error() string {
	msg := e.Message
	if ctx := e.Context.String(); ctx != "" {
		msg += " (" + ctx + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *BuilderError) Unwrap() error { return e.Cause }

// UnknownSettingError names a settings key that is not recognised.
type UnknownSettingError struct {
	Key string
}

func (e *UnknownSettingError) Error() string {
	return fmt.Sprintf("the setting %s is not known; make sure you spelled it correctly (case sensitive)", e.Key)
}

func (e *UnknownSettingError) Is(target error) bool { return target == ErrUnknownSetting }

func missingAttr(element, attr string) error {
	return fmt.Errorf("<%s> requires the %s attribute: %w", element, attr, ErrMissingAttribute)
}
