// Package config resolves everything roku-cli needs before it talks to a device:
// protocol tunables loaded from an optional YAML settings file, and the device
// endpoint merged from explicit flags over environment defaults.
package config
