package models

import "strings"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusPreparing  OrderStatus = "PREPARING"
	OrderStatusReady      OrderStatus = "READY"
	OrderStatusAssigned   OrderStatus = "ASSIGNED"
	OrderStatusPickedUp   OrderStatus = "PICKED_UP"
	OrderStatusDelivering OrderStatus = "DELIVERING"
	OrderStatusArrived    OrderStatus = "ARRIVED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

// OrderStatuses lists the forward path followed by the two exits.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusAssigned,
	OrderStatusPickedUp,
	OrderStatusDelivering,
	OrderStatusArrived,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// Valid reports whether s is a member of the closed status set.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition may leave s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusRefunded
}

// ParseOrderStatus accepts the canonical form plus lower-case and
// dash/space separated variants ("picked up", "picked-up").
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	norm := strings.ToUpper(strings.TrimSpace(raw))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	s := OrderStatus(norm)
	return s, s.Valid()
}

// DeliveryStatus is the coarse courier-facing view derived from OrderStatus.
type DeliveryStatus string

const (
	DeliveryStatusNotStarted      DeliveryStatus = "NOT_STARTED"
	DeliveryStatusAssigningDriver DeliveryStatus = "ASSIGNING_DRIVER"
	DeliveryStatusDriverAssigned  DeliveryStatus = "DRIVER_ASSIGNED"
	DeliveryStatusDriverOnWay     DeliveryStatus = "DRIVER_ON_WAY"
	DeliveryStatusDriverArrived   DeliveryStatus = "DRIVER_ARRIVED"
	DeliveryStatusDelivered       DeliveryStatus = "DELIVERED"
	DeliveryStatusFailed          DeliveryStatus = "FAILED"
)

// Milestone names a timestamp slot on the tracking record.
type Milestone string

const (
	MilestoneOrderPlaced    Milestone = "orderPlaced"
	MilestoneConfirmed      Milestone = "confirmed"
	MilestonePreparing      Milestone = "preparing"
	MilestoneReady          Milestone = "ready"
	MilestoneDriverAssigned Milestone = "driverAssigned"
	MilestonePickedUp       Milestone = "pickedUp"
	MilestoneDelivering     Milestone = "delivering"
	MilestoneArrived        Milestone = "arrived"
	MilestoneDelivered      Milestone = "delivered"
	MilestoneCancelled      Milestone = "cancelled"
)

// Actor identifies who issued a tracking change.
type Actor string

const (
	ActorSystem     Actor = "system"
	ActorRestaurant Actor = "restaurant"
	ActorDriver     Actor = "driver"
	ActorCustomer   Actor = "customer"
)

// Valid reports whether a is one of the known actors.
func (a Actor) Valid() bool {
	switch a {
	case ActorSystem, ActorRestaurant, ActorDriver, ActorCustomer:
		return true
	}
	return false
}

// VehicleType is the courier's means of transport.
type VehicleType string

const (
	VehicleCar        VehicleType = "car"
	VehicleMotorcycle VehicleType = "motorcycle"
	VehicleBicycle    VehicleType = "bicycle"
	VehicleScooter    VehicleType = "scooter"
)

func (v VehicleType) Valid() bool {
	switch v {
	case VehicleCar, VehicleMotorcycle, VehicleBicycle, VehicleScooter:
		return true
	}
	return false
}

// InteractionType is a customer-initiated request against an order.
type InteractionType string

const (
	InteractionCallDriver     InteractionType = "call_driver"
	InteractionCallRestaurant InteractionType = "call_restaurant"
	InteractionCancelRequest  InteractionType = "cancel_request"
	InteractionModifyRequest  InteractionType = "modify_request"
)

func (t InteractionType) Valid() bool {
	switch t {
	case InteractionCallDriver, InteractionCallRestaurant, InteractionCancelRequest, InteractionModifyRequest:
		return true
	}
	return false
}

const (
	InteractionPending  = "pending"
	InteractionResolved = "resolved"

	PaymentCard   = "card"
	PaymentCash   = "cash"
	PaymentWallet = "wallet"
)
