package tracking

import (
	"github.com/chrisdamba/foodatrack/internal/models"
)

var deliveryStatuses = map[models.OrderStatus]models.DeliveryStatus{
	models.OrderStatusPending:    models.DeliveryStatusNotStarted,
	models.OrderStatusConfirmed:  models.DeliveryStatusNotStarted,
	models.OrderStatusPreparing:  models.DeliveryStatusNotStarted,
	models.OrderStatusReady:      models.DeliveryStatusAssigningDriver,
	models.OrderStatusAssigned:   models.DeliveryStatusDriverAssigned,
	models.OrderStatusPickedUp:   models.DeliveryStatusDriverOnWay,
	models.OrderStatusDelivering: models.DeliveryStatusDriverOnWay,
	models.OrderStatusArrived:    models.DeliveryStatusDriverArrived,
	models.OrderStatusDelivered:  models.DeliveryStatusDelivered,
	models.OrderStatusCancelled:  models.DeliveryStatusFailed,
	models.OrderStatusRefunded:   models.DeliveryStatusFailed,
}

// PENDING and REFUNDED have no milestone; orderPlaced is written when the
// tracking record is created.
var milestones = map[models.OrderStatus]models.Milestone{
	models.OrderStatusConfirmed:  models.MilestoneConfirmed,
	models.OrderStatusPreparing:  models.MilestonePreparing,
	models.OrderStatusReady:      models.MilestoneReady,
	models.OrderStatusAssigned:   models.MilestoneDriverAssigned,
	models.OrderStatusPickedUp:   models.MilestonePickedUp,
	models.OrderStatusDelivering: models.MilestoneDelivering,
	models.OrderStatusArrived:    models.MilestoneArrived,
	models.OrderStatusDelivered:  models.MilestoneDelivered,
	models.OrderStatusCancelled:  models.MilestoneCancelled,
}

var defaultDescriptions = map[models.OrderStatus]string{
	models.OrderStatusPending:    "Siparişiniz alındı",
	models.OrderStatusConfirmed:  "Siparişiniz onaylandı",
	models.OrderStatusPreparing:  "Siparişiniz hazırlanıyor",
	models.OrderStatusReady:      "Siparişiniz hazır",
	models.OrderStatusAssigned:   "Teslimatçı atandı",
	models.OrderStatusPickedUp:   "Siparişiniz teslimatçı tarafından alındı",
	models.OrderStatusDelivering: "Siparişiniz yolda",
	models.OrderStatusArrived:    "Teslimatçı adresinize ulaştı",
	models.OrderStatusDelivered:  "Siparişiniz teslim edildi",
	models.OrderStatusCancelled:  "Siparişiniz iptal edildi",
	models.OrderStatusRefunded:   "Siparişiniz iade edildi",
}

// forwardPath is the happy path; position in it orders the statuses.
var forwardPath = []models.OrderStatus{
	models.OrderStatusPending,
	models.OrderStatusConfirmed,
	models.OrderStatusPreparing,
	models.OrderStatusReady,
	models.OrderStatusAssigned,
	models.OrderStatusPickedUp,
	models.OrderStatusDelivering,
	models.OrderStatusArrived,
	models.OrderStatusDelivered,
}

// DeliveryStatusFor returns the courier-facing status for s.
func DeliveryStatusFor(s models.OrderStatus) models.DeliveryStatus {
	return deliveryStatuses[s]
}

// MilestoneFor returns the timestamp slot written on the first move to s.
func MilestoneFor(s models.OrderStatus) (models.Milestone, bool) {
	m, ok := milestones[s]
	return m, ok
}

// DefaultDescription is the customer-facing text used when a caller gives none.
func DefaultDescription(s models.OrderStatus) string {
	return defaultDescriptions[s]
}

func pathIndex(s models.OrderStatus) int {
	for i, p := range forwardPath {
		if p == s {
			return i
		}
	}
	return -1
}

// CanTransition reports whether an order in from may move to to. Repeating
// the current status is accepted, as is skipping ahead on the forward path.
// CANCELLED and REFUNDED are reachable from every non-terminal status.
func CanTransition(from, to models.OrderStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	if to == models.OrderStatusCancelled || to == models.OrderStatusRefunded {
		return true
	}
	return pathIndex(to) > pathIndex(from)
}
