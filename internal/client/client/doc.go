// Package client is the HTTP client of the evidence API used by evidencectl.
// It sends the bearer token, decodes problem+json errors and exposes the
// digest headers of downloads so callers can verify what they received.
package client
