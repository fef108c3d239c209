// Package pending correlates outbound requests with inbound replies by
// sequence number.
//
// A caller registers a sequence number before sending and receives a
// one-shot Result. Whoever sees the reply completes the sequence number;
// completing an unknown or already completed number is a no-op.
package pending
