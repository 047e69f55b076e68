package archive

import (
	"github.com/chrisdamba/foodatrack/internal/models"
	"github.com/chrisdamba/foodatrack/internal/tracking"
)

// StatusRow is one flattened status update.
type StatusRow struct {
	OrderID      string `parquet:"name=order_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	RestaurantID string `parquet:"name=restaurant_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Sequence     int32  `parquet:"name=sequence, type=INT32"`
	Status       string `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
	UpdatedBy    string `parquet:"name=updated_by, type=BYTE_ARRAY, convertedtype=UTF8"`
	Description  string `parquet:"name=description, type=BYTE_ARRAY, convertedtype=UTF8"`
	DriverID     string `parquet:"name=driver_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp    int64  `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

// OrderRow summarises one order and its measured durations.
type OrderRow struct {
	OrderID             string  `parquet:"name=order_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	CustomerID          string  `parquet:"name=customer_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	RestaurantID        string  `parquet:"name=restaurant_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Status              string  `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
	PaymentMethod       string  `parquet:"name=payment_method, type=BYTE_ARRAY, convertedtype=UTF8"`
	TotalAmount         float64 `parquet:"name=total_amount, type=DOUBLE"`
	ItemCount           int32   `parquet:"name=item_count, type=INT32"`
	CreatedAt           int64   `parquet:"name=created_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	UpdatedAt           int64   `parquet:"name=updated_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	PreparationMinutes  *int32  `parquet:"name=preparation_minutes, type=INT32, repetitiontype=OPTIONAL"`
	DeliveryMinutes     *int32  `parquet:"name=delivery_minutes, type=INT32, repetitiontype=OPTIONAL"`
	TotalMinutes        *int32  `parquet:"name=total_minutes, type=INT32, repetitiontype=OPTIONAL"`
	Notifications       int32   `parquet:"name=notifications, type=INT32"`
	FailedNotifications int32   `parquet:"name=failed_notifications, type=INT32"`
	Interactions        int32   `parquet:"name=interactions, type=INT32"`
}

func statusRows(order *models.Order) []StatusRow {
	if order.Tracking == nil {
		return nil
	}
	rows := make([]StatusRow, 0, len(order.Tracking.StatusUpdates))
	for i, u := range order.Tracking.StatusUpdates {
		rows = append(rows, StatusRow{
			OrderID:      order.ID,
			RestaurantID: order.RestaurantID,
			Sequence:     int32(i),
			Status:       string(u.Status),
			UpdatedBy:    string(u.UpdatedBy),
			Description:  u.Description,
			DriverID:     u.Metadata["driverId"],
			Timestamp:    u.Timestamp.UnixMilli(),
		})
	}
	return rows
}

func orderRow(order *models.Order) OrderRow {
	row := OrderRow{
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		RestaurantID:  order.RestaurantID,
		Status:        string(order.Status),
		PaymentMethod: order.PaymentMethod,
		TotalAmount:   order.TotalAmount,
		CreatedAt:     order.CreatedAt.UnixMilli(),
		UpdatedAt:     order.UpdatedAt.UnixMilli(),
	}
	for _, item := range order.Items {
		row.ItemCount += int32(item.Quantity)
	}
	if order.Tracking == nil {
		return row
	}
	times := tracking.CalculateActualTimes(order.Tracking)
	row.PreparationMinutes = toInt32(times.Preparation)
	row.DeliveryMinutes = toInt32(times.Delivery)
	row.TotalMinutes = toInt32(times.Total)
	for _, n := range order.Tracking.Notifications {
		row.Notifications++
		if !n.Success {
			row.FailedNotifications++
		}
	}
	row.Interactions = int32(len(order.Tracking.CustomerInteractions))
	return row
}

func toInt32(v *int) *int32 {
	if v == nil {
		return nil
	}
	n := int32(*v)
	return &n
}
