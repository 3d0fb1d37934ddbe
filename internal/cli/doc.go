// Package cli implements the verifycache command-line interface using cobra.
//
// Commands: check, cache (show, list, clear, validate, invalidate, prune), version.
// Exit codes: 0 = success, 1 = findings, 2 = usage error, 4 = runtime error.
package cli
