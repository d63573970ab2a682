// Package ratelimit is a per-client-IP token bucket for the public
// listener.
//
// State is in-memory and per process. It blunts a single address hammering
// the UI host and makes that visible in logs and metrics. Distributed
// floods belong to whatever sits upstream.
package ratelimit
