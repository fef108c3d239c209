package world

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrWireType is returned when a known field arrives with the wrong wire type.
var ErrWireType = errors.New("world: unexpected wire type")

// field is one decoded tag/value pair.
type field struct {
	num protowire.Number
	typ protowire.Type
	u   uint64
	b   []byte
}

// walk calls fn for every varint and length-delimited field in b.
// Fields of other wire types are skipped.
func walk(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("world: tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.u, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.b, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("world: field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		if n < 0 {
			return fmt.Errorf("world: field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) varint() (uint64, error) {
	if f.typ != protowire.VarintType {
		return 0, fmt.Errorf("%w: field %d is %v", ErrWireType, f.num, f.typ)
	}
	return f.u, nil
}

func (f field) int32(dst *int32) error {
	v, err := f.varint()
	*dst = int32(v)
	return err
}

func (f field) int64(dst *int64) error {
	v, err := f.varint()
	*dst = int64(v)
	return err
}

func (f field) uint32(dst *uint32) error {
	v, err := f.varint()
	*dst = uint32(v)
	return err
}

func (f field) bool(dst *bool) error {
	v, err := f.varint()
	*dst = protowire.DecodeBool(v)
	return err
}

func (f field) bytes() ([]byte, error) {
	if f.typ != protowire.BytesType {
		return nil, fmt.Errorf("%w: field %d is %v", ErrWireType, f.num, f.typ)
	}
	return f.b, nil
}

func (f field) string(dst *string) error {
	b, err := f.bytes()
	*dst = string(b)
	return err
}

// int64s appends a repeated int64 field, accepting packed and unpacked forms.
func (f field) int64s(dst *[]int64) error {
	if f.typ == protowire.VarintType {
		*dst = append(*dst, int64(f.u))
		return nil
	}
	b, err := f.bytes()
	if err != nil {
		return err
	}
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return fmt.Errorf("world: packed field %d: %w", f.num, protowire.ParseError(n))
		}
		*dst = append(*dst, int64(v))
		b = b[n:]
	}
	return nil
}

// message decodes an embedded message with the given decoder.
func message[T any](f field, decode func([]byte) (T, error), dst *[]T) error {
	b, err := f.bytes()
	if err != nil {
		return err
	}
	v, err := decode(b)
	if err != nil {
		return err
	}
	*dst = append(*dst, v)
	return nil
}

// UnmarshalInitTruck decodes a UInitTruck.
func UnmarshalInitTruck(b []byte) (InitTruck, error) {
	var t InitTruck
	err := walk(b, func(f field) error {
		switch f.num {
		case fInitTruckID:
			return f.int32(&t.ID)
		case fInitTruckX:
			return f.int32(&t.X)
		case fInitTruckY:
			return f.int32(&t.Y)
		}
		return nil
	})
	return t, err
}

// UnmarshalConnect decodes a UConnect.
func UnmarshalConnect(b []byte) (Connect, error) {
	var c Connect
	err := walk(b, func(f field) error {
		switch f.num {
		case fConnectWorldID:
			return f.int64(&c.WorldID)
		case fConnectTrucks:
			return message(f, UnmarshalInitTruck, &c.Trucks)
		case fConnectIsAmazon:
			return f.bool(&c.IsAmazon)
		}
		return nil
	})
	return c, err
}

// UnmarshalConnected decodes a UConnected.
func UnmarshalConnected(b []byte) (Connected, error) {
	var c Connected
	err := walk(b, func(f field) error {
		switch f.num {
		case fConnectedWorldID:
			return f.int64(&c.WorldID)
		case fConnectedResult:
			return f.string(&c.Result)
		}
		return nil
	})
	return c, err
}

func unmarshalGoPickup(b []byte) (GoPickup, error) {
	var p GoPickup
	err := walk(b, func(f field) error {
		switch f.num {
		case fPickupTruckID:
			return f.int32(&p.TruckID)
		case fPickupWhID:
			return f.int32(&p.WarehouseID)
		case fPickupSeq:
			return f.int64(&p.Seq)
		}
		return nil
	})
	return p, err
}

func unmarshalDeliveryLocation(b []byte) (DeliveryLocation, error) {
	var l DeliveryLocation
	err := walk(b, func(f field) error {
		switch f.num {
		case fLocPackageID:
			return f.int64(&l.PackageID)
		case fLocX:
			return f.int32(&l.X)
		case fLocY:
			return f.int32(&l.Y)
		}
		return nil
	})
	return l, err
}

func unmarshalGoDeliver(b []byte) (GoDeliver, error) {
	var d GoDeliver
	err := walk(b, func(f field) error {
		switch f.num {
		case fDeliverTruckID:
			return f.int32(&d.TruckID)
		case fDeliverPackages:
			return message(f, unmarshalDeliveryLocation, &d.Packages)
		case fDeliverSeq:
			return f.int64(&d.Seq)
		}
		return nil
	})
	return d, err
}

func unmarshalQuery(b []byte) (Query, error) {
	var q Query
	err := walk(b, func(f field) error {
		switch f.num {
		case fQueryTruckID:
			return f.int32(&q.TruckID)
		case fQuerySeq:
			return f.int64(&q.Seq)
		}
		return nil
	})
	return q, err
}

// UnmarshalCommands decodes a UCommands.
func UnmarshalCommands(b []byte) (Commands, error) {
	var c Commands
	err := walk(b, func(f field) error {
		switch f.num {
		case fCmdPickups:
			return message(f, unmarshalGoPickup, &c.Pickups)
		case fCmdDeliveries:
			return message(f, unmarshalGoDeliver, &c.Deliveries)
		case fCmdSimSpeed:
			return f.uint32(&c.SimSpeed)
		case fCmdDisconnect:
			return f.bool(&c.Disconnect)
		case fCmdQueries:
			return message(f, unmarshalQuery, &c.Queries)
		case fCmdAcks:
			return f.int64s(&c.Acks)
		}
		return nil
	})
	return c, err
}

func unmarshalFinished(b []byte) (Finished, error) {
	var m Finished
	err := walk(b, func(f field) error {
		switch f.num {
		case fFinTruckID:
			return f.int32(&m.TruckID)
		case fFinX:
			return f.int32(&m.X)
		case fFinY:
			return f.int32(&m.Y)
		case fFinStatus:
			return f.string(&m.Status)
		case fFinSeq:
			return f.int64(&m.Seq)
		}
		return nil
	})
	return m, err
}

func unmarshalDeliveryMade(b []byte) (DeliveryMade, error) {
	var m DeliveryMade
	err := walk(b, func(f field) error {
		switch f.num {
		case fMadeTruckID:
			return f.int32(&m.TruckID)
		case fMadePackageID:
			return f.int64(&m.PackageID)
		case fMadeSeq:
			return f.int64(&m.Seq)
		}
		return nil
	})
	return m, err
}

func unmarshalTruck(b []byte) (Truck, error) {
	var m Truck
	err := walk(b, func(f field) error {
		switch f.num {
		case fTruckID:
			return f.int32(&m.TruckID)
		case fTruckStatus:
			return f.string(&m.Status)
		case fTruckX:
			return f.int32(&m.X)
		case fTruckY:
			return f.int32(&m.Y)
		case fTruckSeq:
			return f.int64(&m.Seq)
		}
		return nil
	})
	return m, err
}

func unmarshalErr(b []byte) (Err, error) {
	var m Err
	err := walk(b, func(f field) error {
		switch f.num {
		case fErrMessage:
			return f.string(&m.Message)
		case fErrOriginSeq:
			return f.int64(&m.OriginSeq)
		case fErrSeq:
			return f.int64(&m.Seq)
		}
		return nil
	})
	return m, err
}

// UnmarshalResponses decodes a UResponses.
func UnmarshalResponses(b []byte) (Responses, error) {
	var r Responses
	err := walk(b, func(f field) error {
		switch f.num {
		case fRespCompletions:
			return message(f, unmarshalFinished, &r.Completions)
		case fRespDelivered:
			return message(f, unmarshalDeliveryMade, &r.Delivered)
		case fRespFinished:
			return f.bool(&r.Finished)
		case fRespAcks:
			return f.int64s(&r.Acks)
		case fRespTruckStatus:
			return message(f, unmarshalTruck, &r.TruckStatus)
		case fRespErrors:
			return message(f, unmarshalErr, &r.Errors)
		}
		return nil
	})
	return r, err
}
