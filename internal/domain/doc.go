// Package domain contains the core entities and value objects of the world
// connector.
//
// This package is the innermost layer. It has no dependencies on
// infrastructure concerns (sockets, databases, logging) and holds only the
// vocabulary shared by the codec, the dispatcher and the business bridge.
//
// # Entities
//
//   - [Batch]: one decoded inbound frame, grouped by entry kind
//   - [Completion], [Delivery], [StatusUpdate], [ErrorEntry], [Ack]: batch entries
//   - [TruckStatus]: the fixed internal status enumeration
//   - [Event]: a notification handed to external parties
//   - [Session]: persisted connection identity (world id, sequence high-water mark)
//
// # Design Principles
//
// Domain values are:
//   - Plain data, safe to copy
//   - Free of infrastructure dependencies
//   - Testable without mocks or external systems
package domain
