// Package services contains the business logic between the HTTP
// transport and the domain packages. Each service owns one concern:
// dataset insights, price predictions, model performance, training
// runs, and health checks. Services return APIError values the
// transport layer renders as RFC 7807 problem responses.
package services
