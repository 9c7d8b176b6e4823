// Package apperr defines the error taxonomy shared by the analysis engine, its
// lookup sources and the HTTP layer. It is a leaf package with no internal
// imports, so low-level transports (dnsclient, doh) can use the sentinels
// without creating import cycles.
package apperr
