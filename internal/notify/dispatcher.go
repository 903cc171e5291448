// Package notify is the fire-and-forget side channel for order and stock
// events. Dispatch runs detached from the request path; publish failures
// are logged and never reach the triggering operation.
package notify

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arefiev/storefront/internal/models"
)

const (
	TopicOrderEvents     = "order_events"
	TopicInventoryEvents = "inventory_events"
)

type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

type Dispatcher struct {
	Producer EventPublisher
	Logger   *slog.Logger
	Timeout  time.Duration

	wg sync.WaitGroup
}

func NewDispatcher(producer EventPublisher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		Producer: producer,
		Logger:   logger,
		Timeout:  5 * time.Second,
	}
}

func (d *Dispatcher) OrderCreated(order *models.Order) {
	d.dispatch(TopicOrderEvents, eventKey(order.ID), map[string]any{
		"type":     "order_created",
		"event_id": uuid.NewString(),
		"order_id": order.ID,
		"user_id":  order.UserID,
		"total":    order.TotalPrice,
		"email":    order.ShippingAddress.Email,
	})
}

func (d *Dispatcher) OrderDelivered(order *models.Order) {
	d.dispatch(TopicOrderEvents, eventKey(order.ID), map[string]any{
		"type":     "order_delivered",
		"event_id": uuid.NewString(),
		"order_id": order.ID,
		"user_id":  order.UserID,
		"email":    order.ShippingAddress.Email,
		"phone":    order.ShippingAddress.Phone,
	})
}

func (d *Dispatcher) LowStock(productID uint, name string, stock uint) {
	d.dispatch(TopicInventoryEvents, eventKey(productID), map[string]any{
		"type":       "low_stock",
		"event_id":   uuid.NewString(),
		"product_id": productID,
		"name":       name,
		"stock":      stock,
	})
}

func (d *Dispatcher) dispatch(topic, key string, event map[string]any) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
		defer cancel()

		if err := d.Producer.Publish(ctx, topic, key, event); err != nil {
			d.logger().Error("notify publish failed",
				"topic", topic, "event_type", event["type"], "error", err)
		}
	}()
}

// Flush waits for in-flight dispatches, used on shutdown and in tests.
func (d *Dispatcher) Flush() {
	d.wg.Wait()
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func eventKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
