// Package frame implements the length-prefixed framing used on the world
// connection.
//
// Every message on the wire is an unsigned varint length followed by that
// many payload bytes:
//
//	[uvarint length][length bytes of payload]
//
// TCP gives no message boundaries, so decoding is incremental. A [Decoder]
// accumulates whatever bytes arrive and yields a payload only once it is
// complete; a short read never blocks or fails, it simply waits for more.
// [Reader] drives a Decoder from an io.Reader.
//
// The payload is opaque to this package.
package frame
