// Package apperr defines the error taxonomy shared by the pipeline and its
// front ends.
//
// Errors carry a user-facing message and a stable Code. The HTTP layer maps
// codes to status codes; the terminal UI shows the message inline for the
// file that failed and moves on to the next one.
package apperr
