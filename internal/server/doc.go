// Package server provides the embedded HTTP server for mywebapp.
//
// the server is configured through environment variables
// (see internal/config/config.go for details) and by default listens on port 80 on all interfaces.
//
// The application defines no business routes: every request gets the default JSON error response
// (404 for unknown paths, see internal/apperr).
// The infrastructure handlers (health, readiness, version) are in internal/server/handlers
// and are mounted only when INFRA_ROUTES_ENABLED is true.
//
// middleware is in internal/server/middleware
package server
