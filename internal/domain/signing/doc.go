// Package signing holds the domain model of the device signing lifecycle:
// the resolved device endpoint, the developer credential minted by the device,
// the on-disk signing bundle and the error taxonomy shared by every workflow.
package signing
