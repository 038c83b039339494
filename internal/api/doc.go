// Package api provides the REST client for the concord service.
//
// Every call flows through Client.Do, which throttles against the
// per-route rate-limit table before sending, records quota headers from
// each response, and classifies recognized error statuses into an
// *APIError. Endpoint methods are thin wrappers over Do.
package api
