// Package api contains the HTTP handlers, request/response models and
// error mapping for the public REST surface. Handlers stay thin: they
// decode and validate input, call a store or service, and translate the
// result into a sanitized JSON response.
package api
