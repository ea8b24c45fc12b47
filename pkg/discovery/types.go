package discovery

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/hermes-notify/subsync/pkg/version"
)

// Service constants for mDNS.
const (
	// ServiceType is the DNS-SD service type of the subscription API.
	ServiceType = "_hermes-api._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is used when APIInfo.Port is zero.
	DefaultPort = 8080

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63

	// BrowseTimeout is the default time Find waits for a service.
	BrowseTimeout = 10 * time.Second
)

// TXT record keys.
const (
	TXTKeyVersion = "ver"  // API version, e.g. "v2"
	TXTKeyPath    = "path" // API path prefix, e.g. "/api/v2"
	TXTKeyTLS     = "tls"  // "1" when served over HTTPS
)

var (
	// ErrNotFound is returned when browsing ends without a result.
	ErrNotFound = errors.New("api service not found")

	// ErrMissingRequired is returned for a TXT record without a required key.
	ErrMissingRequired = errors.New("missing required TXT record")

	// ErrInvalidInstanceName is returned for empty or oversized instance names.
	ErrInvalidInstanceName = errors.New("invalid instance name")
)

// APIInfo describes an API instance to advertise.
type APIInfo struct {
	// Instance is the DNS-SD instance name.
	Instance string

	// Port is the listening port. Zero means DefaultPort.
	Port uint16

	// Version is the served API version.
	Version version.APIVersion

	// TLS is set when the API is served over HTTPS.
	TLS bool
}

// APIService is a discovered API instance. Addresses seen on several
// interfaces are merged into one service.
type APIService struct {
	Instance  string
	Host      string
	Port      uint16
	Addresses []string
	Version   version.APIVersion
	TLS       bool
}

// BaseURL returns the scheme, first address and port of the service.
func (s *APIService) BaseURL() string {
	scheme := "http"
	if s.TLS {
		scheme = "https"
	}
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(host, strconv.Itoa(int(s.Port))))
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidInstanceName)
	}
	if len(name) > MaxInstanceNameLen {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidInstanceName, MaxInstanceNameLen)
	}
	return nil
}
