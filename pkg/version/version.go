// Package version parses API version identifiers and builds request path prefixes.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the API version used when none is configured.
const Current = "v2"

// APIVersion represents a parsed "vN" API version.
type APIVersion struct {
	Major uint16
}

// Parse parses an API version string. Accepted forms are "v2", "V2" and "2".
func Parse(s string) (APIVersion, error) {
	trimmed := strings.TrimSpace(s)
	digits := strings.TrimPrefix(strings.TrimPrefix(trimmed, "v"), "V")
	if digits == "" {
		return APIVersion{}, fmt.Errorf("invalid API version %q: missing major component", s)
	}

	major, err := strconv.ParseUint(digits, 10, 16)
	if err != nil {
		return APIVersion{}, fmt.Errorf("invalid API version %q: bad major component", s)
	}
	if major == 0 {
		return APIVersion{}, fmt.Errorf("invalid API version %q: major must be positive", s)
	}

	return APIVersion{Major: uint16(major)}, nil
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(s string) APIVersion {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as "vN".
func (v APIVersion) String() string {
	return fmt.Sprintf("v%d", v.Major)
}

// Compatible returns true if the other version has the same major version.
func (v APIVersion) Compatible(other APIVersion) bool {
	return v.Major == other.Major
}

// Prefix returns the path prefix for this version, e.g. "/api/v2".
func (v APIVersion) Prefix() string {
	return "/api/" + v.String()
}

// Path joins the version prefix with an endpoint path.
// A missing leading slash on p is added.
func (v APIVersion) Path(p string) string {
	if p == "" {
		return v.Prefix()
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return v.Prefix() + p
}
