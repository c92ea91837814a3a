// Package keygen mints a new developer identity on a device.
//
// It opens a remote shell session, issues genkey, and parses the DevID and
// Password lines out of the device output. Every failure is reported as a
// signing.KeyGenerationError carrying the device host.
package keygen
