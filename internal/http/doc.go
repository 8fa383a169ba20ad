// Package http exposes the attendance engine over a JSON HTTP API: the
// badge check endpoint consumed by card readers, administrative user and
// system management, payroll queries, and the polled state snapshot.
package http
