// Package console prints the one-line user-facing outcome of a roku-cli command,
// in the form "[roku-cli][LEVEL]: message".
//
// Colours are applied only when the writer is a terminal that supports them.
package console
