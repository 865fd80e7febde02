package events

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	OrderPlacedQueue    = "order.placed"
	OrderCancelledQueue = "order.cancelled"
)

// Dial connects to RabbitMQ, retrying briefly so the service survives a
// broker that is still starting up.
func Dial(url string) (*amqp.Connection, error) {
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("dial rabbitmq: %w", lastErr)
}
