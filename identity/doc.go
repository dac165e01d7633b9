// Package identity generates the random identifiers attached to control
// sessions so that every log line written while serving one client
// connection can be correlated.
//
// Generating an identifier is simple:
//
//	id := identity.NewID()
package identity
