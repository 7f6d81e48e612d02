// Package cli implements evidencectl, a cobra command-line client for the
// evidence HTTP API.
//
// Commands:
//   - upload      add a file as new evidence or as a new version
//   - list        list a case's evidence with version metadata
//   - download    fetch a version, verifying its SHA-256 header
//   - search      find versions by SHA-256 or MD5 digest
//   - access-log  show who accessed a version and how
//   - ping        check the server health endpoint
//   - dev-token   mint a development bearer token
//
// The bearer token comes from --token, EVIDENCE_TOKEN, the JSON config file,
// or a hidden terminal prompt, in that order.
package cli
