package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validate runs after defaults are applied, so it only guards values a user
// actually supplied in a broken form.
func (c *StructuredConfig) validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.API.BaseURL)
	}

	if !strings.HasPrefix(c.Channel.URL, "ws://") && !strings.HasPrefix(c.Channel.URL, "wss://") {
		return fmt.Errorf("%w: %q", ErrInvalidWSURL, c.Channel.URL)
	}

	return nil
}
