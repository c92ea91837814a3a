package config

import (
	"github.com/oshokin/roku-cli/internal/domain/signing"
)

const (
	// EnvDeviceAddress names the environment variable holding the device host.
	EnvDeviceAddress = "ROKU_DEVICE_ADDRESS"
	// EnvDeviceUsername names the environment variable holding the installer user.
	EnvDeviceUsername = "ROKU_DEVICE_USERNAME"
	// EnvDevicePassword names the environment variable holding the installer password.
	EnvDevicePassword = "ROKU_DEVICE_PASSWORD"

	// DefaultUsername is the developer installer user on every device.
	DefaultUsername = "rokudev"
)

// LookupFunc reads a named setting from the environment. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Overrides are the device properties given explicitly by the caller.
// Empty fields fall back to the environment.
type Overrides struct {
	// Host is the device address.
	Host string
	// Username is the developer installer user.
	Username string
	// Password is the developer installer password.
	Password string
}

// ResolveEndpoint merges explicit overrides over environment defaults.
// The username falls back to DefaultUsername, so only a missing host or
// password produces a ConfigurationError. It performs no I/O.
func ResolveEndpoint(overrides Overrides, lookup LookupFunc) (signing.DeviceEndpoint, error) {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}

	endpoint := signing.DeviceEndpoint{
		Host:     firstSet(overrides.Host, lookup, EnvDeviceAddress, ""),
		Username: firstSet(overrides.Username, lookup, EnvDeviceUsername, DefaultUsername),
		Password: firstSet(overrides.Password, lookup, EnvDevicePassword, ""),
	}

	var missing []string
	if endpoint.Host == "" {
		missing = append(missing, "device")
	}

	if endpoint.Password == "" {
		missing = append(missing, "password")
	}

	if len(missing) > 0 {
		return signing.DeviceEndpoint{}, &signing.ConfigurationError{Missing: missing}
	}

	return endpoint, nil
}

func firstSet(explicit string, lookup LookupFunc, key, fallback string) string {
	if explicit != "" {
		return explicit
	}

	if value, ok := lookup(key); ok && value != "" {
		return value
	}

	return fallback
}
