// Package handlers provides the infrastructure HTTP handlers (liveness, readiness and version).
//
// The handlers are only mounted when INFRA_ROUTES_ENABLED is true.
// The application itself defines no business routes.
package handlers
