// Package http contains the chi HTTP handlers for the houselytics
// API. Each handler owns one resource, depends on a narrow service
// interface, and renders failures as RFC 7807 problem responses
// through the shared error handler.
package http
