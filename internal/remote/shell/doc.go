// Package shell talks to the device's line-oriented debug shell on TCP port 8080.
//
// A Session sends one command at a time and buffers everything the device prints
// until the next prompt. Telnet option negotiation is handled by
// github.com/ziutek/telnet: echo and suppress-go-ahead are accepted, every other
// option is refused, and negotiation bytes never reach the returned text.
package shell
