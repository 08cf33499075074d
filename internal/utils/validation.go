package utils

import (
	"regexp"
	"strings"
)

var hostLabelRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

// IsValidHost reports whether s is a plausible host name for the
// server_name directive and certificate path derivation. "localhost"
// is accepted for docker deployments.
func IsValidHost(s string) bool {
	if s == "" || len(s) > 253 {
		return false
	}
	if s == "localhost" {
		return true
	}

	labels := strings.Split(s, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if !hostLabelRegex.MatchString(label) {
			return false
		}
	}

	// TLD must be at least two characters and not numeric
	tld := labels[len(labels)-1]
	if len(tld) < 2 {
		return false
	}
	for _, r := range tld {
		if r >= '0' && r <= '9' {
			return false
		}
	}

	return true
}
