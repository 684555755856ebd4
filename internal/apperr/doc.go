// Package apperr defines the error codes used by the server and renders them as the
// default JSON error body (ErrorResponse).
//
// handlers and middleware should create errors with the New*/Wrap* functions and send them with RespondWithError.
package apperr
