// Package world encodes and decodes the world simulator's message schema.
//
// The simulator speaks proto2 messages (UConnect, UConnected, UCommands,
// UResponses and their children). They are encoded here field by field with
// protowire rather than generated code, which keeps the schema next to the
// connector and lets decoding skip fields this side does not use.
//
// Framing is not handled here; see pkg/frame.
package world
