// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package config

import (
	"fmt"
	"net/url"
)

// validateURL checks scheme and host, and rejects query strings. A path is
// allowed so the source can sit behind a reverse proxy prefix.
func validateURL(rawURL, fieldName string, schemes ...string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	valid := false
	for _, s := range schemes {
		if parsedURL.Scheme == s {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%s scheme must be one of %v, got: %q", fieldName, schemes, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}

	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}

	return nil
}
