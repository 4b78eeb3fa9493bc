package domain

import (
	"fmt"
	"net/url"
	"strconv"
)

// Credentials carry everything needed to open a session against the service.
type Credentials struct {
	URL    string
	Port   *int
	APIKey string
}

// Endpoint joins URL and the optional port.
func (c Credentials) Endpoint() (string, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("api url %q must include scheme and host", c.URL)
	}
	if c.Port != nil {
		u.Host = u.Hostname() + ":" + strconv.Itoa(*c.Port)
	}
	return u.String(), nil
}

// Environment is what the process environment contributes to a run.
type Environment struct {
	APIKey    string
	OutputDir string
}

// HasOutputDir reports whether file export is enabled.
func (e Environment) HasOutputDir() bool { return e.OutputDir != "" }
