// Package handlers provides HTTP request handlers for the catalog API.
//
// It includes handlers for:
//   - Tag search, result counts and home browsing
//   - Tag autocomplete
//   - Health, liveness and readiness probes
//   - Version information
//
// The caller is taken from the request context, where middleware.Identity
// stores it; requests without one are served as anonymous.
package handlers
