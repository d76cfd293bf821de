package mapper

import (
	"fmt"
	"strings"
)

// ConfigError is a fatal mapping-configuration error tied to one class. A
// single ConfigError aborts the whole build; there is no partial result.
type ConfigError struct {
	Class    string
	Property string
	Message  string
	Hint     string
}

// Error formats the error with its class and property context.
func (e *ConfigError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("class '%s'", e.Class))
	if e.Property != "" {
		sb.WriteString(fmt.Sprintf(", property '%s'", e.Property))
	}
	sb.WriteString(fmt.Sprintf(": %s", e.Message))
	if e.Hint != "" {
		sb.WriteString(fmt.Sprintf("\n  Hint: %s", e.Hint))
	}
	return sb.String()
}
