package world

import "google.golang.org/protobuf/encoding/protowire"

// Field numbers of the simulator schema.
const (
	// UInitTruck
	fInitTruckID protowire.Number = 1
	fInitTruckX  protowire.Number = 2
	fInitTruckY  protowire.Number = 3

	// UConnect
	fConnectWorldID  protowire.Number = 1
	fConnectTrucks   protowire.Number = 2
	fConnectIsAmazon protowire.Number = 3

	// UConnected
	fConnectedWorldID protowire.Number = 1
	fConnectedResult  protowire.Number = 2

	// UGoPickup
	fPickupTruckID protowire.Number = 1
	fPickupWhID    protowire.Number = 2
	fPickupSeq     protowire.Number = 3

	// UDeliveryLocation
	fLocPackageID protowire.Number = 1
	fLocX         protowire.Number = 2
	fLocY         protowire.Number = 3

	// UGoDeliver
	fDeliverTruckID  protowire.Number = 1
	fDeliverPackages protowire.Number = 2
	fDeliverSeq      protowire.Number = 3

	// UQuery
	fQueryTruckID protowire.Number = 1
	fQuerySeq     protowire.Number = 2

	// UCommands
	fCmdPickups    protowire.Number = 1
	fCmdDeliveries protowire.Number = 2
	fCmdSimSpeed   protowire.Number = 3
	fCmdDisconnect protowire.Number = 4
	fCmdQueries    protowire.Number = 5
	fCmdAcks       protowire.Number = 6

	// UFinished
	fFinTruckID protowire.Number = 1
	fFinX       protowire.Number = 2
	fFinY       protowire.Number = 3
	fFinStatus  protowire.Number = 4
	fFinSeq     protowire.Number = 5

	// UDeliveryMade
	fMadeTruckID   protowire.Number = 1
	fMadePackageID protowire.Number = 2
	fMadeSeq       protowire.Number = 3

	// UTruck
	fTruckID     protowire.Number = 1
	fTruckStatus protowire.Number = 2
	fTruckX      protowire.Number = 3
	fTruckY      protowire.Number = 4
	fTruckSeq    protowire.Number = 5

	// UErr
	fErrMessage   protowire.Number = 1
	fErrOriginSeq protowire.Number = 2
	fErrSeq       protowire.Number = 3

	// UResponses
	fRespCompletions protowire.Number = 1
	fRespDelivered   protowire.Number = 2
	fRespFinished    protowire.Number = 3
	fRespAcks        protowire.Number = 4
	fRespTruckStatus protowire.Number = 5
	fRespErrors      protowire.Number = 6
)

// ConnectedOK is the result string of a successful UConnected.
const ConnectedOK = "connected!"

// InitTruck places a truck when a new world is created.
type InitTruck struct {
	ID int32
	X  int32
	Y  int32
}

// Connect is the identification message sent first on every socket.
// WorldID zero asks the simulator to create a new world.
type Connect struct {
	WorldID  int64
	Trucks   []InitTruck
	IsAmazon bool
}

// Connected is the simulator's answer to Connect.
type Connected struct {
	WorldID int64
	Result  string
}

// GoPickup sends a truck to a warehouse.
type GoPickup struct {
	TruckID     int32
	WarehouseID int32
	Seq         int64
}

// DeliveryLocation is one drop-off of a GoDeliver command.
type DeliveryLocation struct {
	PackageID int64
	X         int32
	Y         int32
}

// GoDeliver sends a loaded truck on its delivery route.
type GoDeliver struct {
	TruckID  int32
	Packages []DeliveryLocation
	Seq      int64
}

// Query asks for a truck's status.
type Query struct {
	TruckID int32
	Seq     int64
}

// Commands is one outbound batch. SimSpeed zero means unset.
type Commands struct {
	Pickups    []GoPickup
	Deliveries []GoDeliver
	SimSpeed   uint32
	Disconnect bool
	Queries    []Query
	Acks       []int64
}

// Finished reports a completed command.
type Finished struct {
	TruckID int32
	X       int32
	Y       int32
	Status  string
	Seq     int64
}

// DeliveryMade reports a delivered package.
type DeliveryMade struct {
	TruckID   int32
	PackageID int64
	Seq       int64
}

// Truck is a queried truck status.
type Truck struct {
	TruckID int32
	Status  string
	X       int32
	Y       int32
	Seq     int64
}

// Err is a rejected command.
type Err struct {
	Message   string
	OriginSeq int64
	Seq       int64
}

// Responses is one inbound batch.
type Responses struct {
	Completions []Finished
	Delivered   []DeliveryMade
	Finished    bool
	Acks        []int64
	TruckStatus []Truck
	Errors      []Err
}
