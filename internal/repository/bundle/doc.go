// Package bundle persists signing bundles: a directory holding one signed
// reference package and the credentials.json it was signed with.
//
// Load validates a bundle structurally and rejects incomplete ones; Save writes
// the two parts with overwrite semantics. The two writes are not atomic as a pair,
// and a bundle left half-written is rejected by the next Load.
package bundle
