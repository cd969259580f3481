// Package cmd provides the command-line interface for strmap.
//
// The CLI wraps the check package, which runs the sample scenario against
// the hash table. It uses Cobra for the command structure and is executed
// through Fang by cmd/strmap.
//
// Commands:
//   - check: populate, verify, iterate and drain a table, printing a report
//   - version: print build information
package cmd
