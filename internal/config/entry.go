package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/ddns"
)

// Entry is one DNS target: the service to update, the update method that
// finds the address, and every setting given for them.
type Entry struct {
	Service      string
	UpdateMethod string
	// Settings holds all keys of the entry, service and updatemethod
	// included, with ${ENV_VAR} references expanded.
	Settings map[string]string
}

// UnmarshalYAML decodes a flat mapping of scalar values.
func (e *Entry) UnmarshalYAML(value *yaml.Node) error {
	settings := map[string]string{}
	if err := value.Decode(&settings); err != nil {
		return fmt.Errorf("entry at line %d must be a flat mapping of settings: %w", value.Line, err)
	}

	// Expand ${ENV_VAR} references in setting values.
	for k, v := range settings {
		settings[k] = os.ExpandEnv(v)
	}

	e.Service = settings["service"]
	e.UpdateMethod = settings["updatemethod"]
	e.Settings = settings
	return nil
}

func (e *Entry) validate() error {
	if e.Service == "" {
		return fmt.Errorf("missing required field 'service': %w", ddns.ErrConfiguration)
	}
	if e.UpdateMethod == "" {
		return fmt.Errorf("missing required field 'updatemethod': %w", ddns.ErrConfiguration)
	}
	return nil
}
