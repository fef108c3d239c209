package world

import "google.golang.org/protobuf/encoding/protowire"

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// appendInt32Field sign-extends negative values as proto int32 requires.
func appendInt32Field(b []byte, num protowire.Number, v int32) []byte {
	return appendVarintField(b, num, uint64(int64(v)))
}

func appendInt64Field(b []byte, num protowire.Number, v int64) []byte {
	return appendVarintField(b, num, uint64(v))
}

func appendBoolField(b []byte, num protowire.Number, v bool) []byte {
	return appendVarintField(b, num, protowire.EncodeBool(v))
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessageField(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// appendInt64s writes a proto2 repeated int64 unpacked, one tag per element.
func appendInt64s(b []byte, num protowire.Number, vs []int64) []byte {
	for _, v := range vs {
		b = appendInt64Field(b, num, v)
	}
	return b
}

// Marshal encodes a UInitTruck.
func (t InitTruck) Marshal() []byte {
	var b []byte
	b = appendInt32Field(b, fInitTruckID, t.ID)
	b = appendInt32Field(b, fInitTruckX, t.X)
	b = appendInt32Field(b, fInitTruckY, t.Y)
	return b
}

// Marshal encodes a UConnect. A zero WorldID is omitted.
func (c Connect) Marshal() []byte {
	var b []byte
	if c.WorldID != 0 {
		b = appendInt64Field(b, fConnectWorldID, c.WorldID)
	}
	for _, t := range c.Trucks {
		b = appendMessageField(b, fConnectTrucks, t.Marshal())
	}
	return appendBoolField(b, fConnectIsAmazon, c.IsAmazon)
}

// Marshal encodes a UConnected.
func (c Connected) Marshal() []byte {
	var b []byte
	b = appendInt64Field(b, fConnectedWorldID, c.WorldID)
	return appendStringField(b, fConnectedResult, c.Result)
}

// Marshal encodes a UGoPickup.
func (p GoPickup) Marshal() []byte {
	var b []byte
	b = appendInt32Field(b, fPickupTruckID, p.TruckID)
	b = appendInt32Field(b, fPickupWhID, p.WarehouseID)
	return appendInt64Field(b, fPickupSeq, p.Seq)
}

// Marshal encodes a UDeliveryLocation.
func (l DeliveryLocation) Marshal() []byte {
	var b []byte
	b = appendInt64Field(b, fLocPackageID, l.PackageID)
	b = appendInt32Field(b, fLocX, l.X)
	return appendInt32Field(b, fLocY, l.Y)
}

// Marshal encodes a UGoDeliver.
func (d GoDeliver) Marshal() []byte {
	var b []byte
	b = appendInt32Field(b, fDeliverTruckID, d.TruckID)
	for _, p := range d.Packages {
		b = appendMessageField(b, fDeliverPackages, p.Marshal())
	}
	return appendInt64Field(b, fDeliverSeq, d.Seq)
}

// Marshal encodes a UQuery.
func (q Query) Marshal() []byte {
	var b []byte
	b = appendInt32Field(b, fQueryTruckID, q.TruckID)
	return appendInt64Field(b, fQuerySeq, q.Seq)
}

// Marshal encodes a UCommands. Unset optionals are omitted.
func (c Commands) Marshal() []byte {
	var b []byte
	for _, p := range c.Pickups {
		b = appendMessageField(b, fCmdPickups, p.Marshal())
	}
	for _, d := range c.Deliveries {
		b = appendMessageField(b, fCmdDeliveries, d.Marshal())
	}
	if c.SimSpeed != 0 {
		b = appendVarintField(b, fCmdSimSpeed, uint64(c.SimSpeed))
	}
	if c.Disconnect {
		b = appendBoolField(b, fCmdDisconnect, true)
	}
	for _, q := range c.Queries {
		b = appendMessageField(b, fCmdQueries, q.Marshal())
	}
	return appendInt64s(b, fCmdAcks, c.Acks)
}

// Empty reports whether the batch carries nothing worth sending.
func (c Commands) Empty() bool {
	return len(c.Pickups) == 0 && len(c.Deliveries) == 0 && len(c.Queries) == 0 &&
		len(c.Acks) == 0 && c.SimSpeed == 0 && !c.Disconnect
}

// Marshal encodes a UFinished.
func (f Finished) Marshal() []byte {
	var b []byte
	b = appendInt32Field(b, fFinTruckID, f.TruckID)
	b = appendInt32Field(b, fFinX, f.X)
	b = appendInt32Field(b, fFinY, f.Y)
	b = appendStringField(b, fFinStatus, f.Status)
	return appendInt64Field(b, fFinSeq, f.Seq)
}

// Marshal encodes a UDeliveryMade.
func (d DeliveryMade) Marshal() []byte {
	var b []byte
	b = appendInt32Field(b, fMadeTruckID, d.TruckID)
	b = appendInt64Field(b, fMadePackageID, d.PackageID)
	return appendInt64Field(b, fMadeSeq, d.Seq)
}

// Marshal encodes a UTruck.
func (t Truck) Marshal() []byte {
	var b []byte
	b = appendInt32Field(b, fTruckID, t.TruckID)
	b = appendStringField(b, fTruckStatus, t.Status)
	b = appendInt32Field(b, fTruckX, t.X)
	b = appendInt32Field(b, fTruckY, t.Y)
	return appendInt64Field(b, fTruckSeq, t.Seq)
}

// Marshal encodes a UErr.
func (e Err) Marshal() []byte {
	var b []byte
	b = appendStringField(b, fErrMessage, e.Message)
	b = appendInt64Field(b, fErrOriginSeq, e.OriginSeq)
	return appendInt64Field(b, fErrSeq, e.Seq)
}

// Marshal encodes a UResponses.
func (r Responses) Marshal() []byte {
	var b []byte
	for _, c := range r.Completions {
		b = appendMessageField(b, fRespCompletions, c.Marshal())
	}
	for _, d := range r.Delivered {
		b = appendMessageField(b, fRespDelivered, d.Marshal())
	}
	if r.Finished {
		b = appendBoolField(b, fRespFinished, true)
	}
	b = appendInt64s(b, fRespAcks, r.Acks)
	for _, t := range r.TruckStatus {
		b = appendMessageField(b, fRespTruckStatus, t.Marshal())
	}
	for _, e := range r.Errors {
		b = appendMessageField(b, fRespErrors, e.Marshal())
	}
	return b
}
