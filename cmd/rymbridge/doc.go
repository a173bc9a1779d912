// Command rymbridge resolves album ratings through a layered cache and
// exposes them over a CLI and a local HTTP API.
package main
