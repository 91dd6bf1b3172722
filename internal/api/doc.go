// Package api translates HTTP requests into plan and user service calls and
// service results into JSON responses.
//
// Handlers never inspect error messages. Every failure is classified with
// MapErrorToStatusCode and described with GetSafeErrorMessage, and the full
// error is logged only after redaction. Routing lives in cmd/server.
package api
