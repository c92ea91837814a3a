// Package workflow implements the four roku-cli operations: deploy, sign,
// rekey and create-signing-credentials.
//
// Each operation resolves the device endpoint before touching the network or the
// filesystem, runs its steps strictly in order and returns the first failure
// unchanged, so callers can branch on the error kind.
package workflow
