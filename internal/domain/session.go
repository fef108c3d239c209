package domain

import "time"

// Session is the persisted identity of the world connection. It lets a
// restarted process rejoin the same world without reusing sequence numbers.
type Session struct {
	WorldID         int64     `json:"world_id"`
	NextSeq         int64     `json:"next_seq"`
	LastConnectedAt time.Time `json:"last_connected_at"`
}
