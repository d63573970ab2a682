// Package health holds the probes behind /-/healthy and /-/ready and the
// handlers that serve them.
//
// Probes compose with [All] and [Any]. [ShutdownGate] fails readiness as
// soon as draining starts so load balancers stop routing new requests
// before the listeners close.
package health
