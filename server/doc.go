// Package server exposes a geoknn index over HTTP.
//
// Endpoints:
//
//	POST /v1/tree       - Replace the index with an empty one
//	POST /v1/points     - Insert a point
//	GET  /v1/neighbors  - k nearest points to lat/lon (query: lat, lon, n)
//	GET  /healthz       - Liveness and index size
//	GET  /metrics       - Prometheus metrics
package server
