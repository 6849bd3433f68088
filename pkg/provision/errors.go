package provision

import (
	"fmt"
	"strings"
)

// ConfigurationMissingError is returned when a required setting has not been supplied
type ConfigurationMissingError struct {
	Missing []string
}

func (e *ConfigurationMissingError) Error() string {
	return fmt.Sprintf("missing configuration: %s", strings.Join(e.Missing, ", "))
}
