// Package transport builds the HTTP clients used to query image boards and
// download images.
//
// Connections are direct by default. A SOCKS5 proxy can be configured, and
// EmbeddedTor starts a private Tor daemon through tornago whose SOCKS port
// is then used as that proxy.
package transport
