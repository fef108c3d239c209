// Package worldlink provides an embeddable connector to the world simulator
// used by the mini-UPS backend.
//
// A Worldlink owns one long-lived TCP session with the simulator. It frames
// and encodes truck commands, correlates every reply with the request that
// caused it, forwards world events to a [Bridge] for persistence and
// notification, and reconnects with exponential backoff when the socket
// drops.
//
// # Basic Usage
//
//	cfg := worldlink.Config{
//	    Host: "vcm-1.example.edu",
//	    Port: 12345,
//	}
//
//	w, err := worldlink.New(cfg, worldlink.WithBridge(myBridge))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := w.Start(ctx); err != nil {
//	    log.Printf("first connect failed, retrying in background: %v", err)
//	}
//
//	res, err := w.Pickup(ctx, truckID, warehouseID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	reply, err := res.Wait(ctx)
//
//	_ = w.Stop()
//
// # Configuration
//
// Zero fields in [Config] are filled by [Config.SetDefaults]. A zero WorldID
// asks the simulator to create a new world; the id it assigns is kept for
// every reconnect and persisted when a [SessionRepository] is configured.
//
// # Event Handling
//
// Implement [EventHandler] and pass it via [WithEventHandler] to observe
// connection state changes, dispatched batches and reconnect attempts.
// Events are delivered synchronously from the receive loop and should
// return quickly.
//
// # Plugins
//
// A [Plugin] is started after the first connection attempt and stopped in
// reverse order during [Worldlink.Stop]. See plugins/configwatcher.
package worldlink
