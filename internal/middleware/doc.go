// Package middleware provides HTTP middleware for the catalog API.
//
// It includes:
//   - Caller identity from the X-Catalog-User header
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labelled by route template
package middleware
