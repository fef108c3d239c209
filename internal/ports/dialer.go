package ports

import (
	"context"
	"net"
)

// Dialer opens the byte stream to the world simulator.
// *net.Dialer satisfies this interface.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}
