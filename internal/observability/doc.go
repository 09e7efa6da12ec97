// Package observability provides structured logging for the role authority
// service: a zap logger built from configuration and a context-aware wrapper
// that stamps every entry with the request ID assigned by the router.
package observability
