// Package secrets resolves credentials such as the Gemini API key and the CRM
// token from files, environment variables or inline configuration.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

type Source struct {
	// Name only appears in error messages.
	Name string
	// Value is the inline value from configuration.
	Value string
	// Env names an environment variable consulted when Value is empty.
	Env string
	// File wins over Env and Value when set.
	File string
}

// Load resolves src in the order File, Value, Env and trims the result.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if secret := strings.TrimSpace(src.Value); secret != "" {
		return secret, nil
	}

	if src.Env != "" {
		if secret := strings.TrimSpace(os.Getenv(src.Env)); secret != "" {
			return secret, nil
		}
		return "", fmt.Errorf("%s is not configured (set %s)", name, src.Env)
	}

	return "", fmt.Errorf("%s is not configured", name)
}
