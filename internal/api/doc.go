// Package api exposes the rating engine over HTTP.
//
// Four endpoints: a blocking resolve, a cache-only lookup, a long-polling
// rating update feed backed by the broadcast hub, and daemon status. Payload
// types live here so the CLI client and the server agree on wire shapes.
package api
