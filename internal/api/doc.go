// Package api defines the transport types shared by the daemon HTTP API and
// the CLI.
//
// The daemon converts queue jobs and workflow summaries into these DTOs
// before encoding them; the CLI decodes the same types through Client when
// it talks to a running daemon. Keep field names stable: external tooling
// reads these payloads.
package api
