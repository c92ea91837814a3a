// Package installer is a client for the device's developer web installer
// (HTTP port 80, digest authentication) and the read-only External Control
// Protocol on port 8060.
//
// It sideloads a zipped project, removes the installed dev channel, rekeys the
// device from a signed package and packages the installed channel into a
// signed .pkg. The device compiles and signs; this package only drives it.
package installer
