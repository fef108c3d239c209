// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// Ports are the boundaries between the connector core and the outside world.
// They say what the core needs from external systems without saying how those
// needs are met.
//
// # Port Interfaces
//
//   - [Bridge]: the business handler seam the dispatcher calls for every entry
//   - [FleetStore]: persistence of truck positions and package delivery
//   - [Notifier]: outbound notification of business events
//   - [Dialer]: opens the TCP stream to the world
//   - [SessionRepository]: persists the connection identity between restarts
//   - [Logger]: structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters (internal/adapters) implement them with postgres, redis, HTTP,
// the file system and zerolog.
package ports
