package ownership

import "fmt"

// ConfigurationError reports an invalid or incomplete ownership declaration.
// It surfaces at first use of a record type and indicates a programming or
// deployment mistake, never a transient condition.
type ConfigurationError struct {
	TypeName string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("ownership configuration for %q is invalid: %s", e.TypeName, e.Reason)
}

func newConfigurationErrorf(typeName, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{
		TypeName: typeName,
		Reason:   fmt.Sprintf(format, args...),
	}
}

// DataIntegrityError reports a record whose stored or in-memory data cannot
// satisfy the ownership chain: a required foreign key is null, or a record of
// an unexpected type was supplied.
type DataIntegrityError struct {
	TypeName string
	Field    string
	Reason   string
}

func (e *DataIntegrityError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("data integrity violation on %s.%s: %s", e.TypeName, e.Field, e.Reason)
	}
	return fmt.Sprintf("data integrity violation on %s: %s", e.TypeName, e.Reason)
}

// InvalidArgumentError reports a malformed engine API call, such as an
// owner-id arity mismatch in filter construction.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}
