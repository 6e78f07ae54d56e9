package datamap

import "fmt"

// ConfigError reports an invalid DataMap definition. It is detected when a
// definition is compiled, before any call is processed; nothing at call
// time produces one.
type ConfigError struct {
	Function string
	Field    string
	Reason   string
}

func (e *ConfigError) Error() string {
	if e.Function == "" {
		return fmt.Sprintf("datamap %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("datamap %q %s: %s", e.Function, e.Field, e.Reason)
}

// IsConfigError returns true if the error is a definition compile failure.
func IsConfigError(err error) bool {
	_, ok := err.(*ConfigError)
	return ok
}
