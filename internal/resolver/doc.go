// Package resolver constructs the system-transport MX resolver, optionally
// tunnelled through a SOCKS5 proxy to prevent DNS leaks.
package resolver
