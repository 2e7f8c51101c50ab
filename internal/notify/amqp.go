package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"finora/internal/logger"
)

// Message is the JSON body published for each alert.
type Message struct {
	Channel   Channel   `json:"channel"`
	Recipient string    `json:"recipient"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// publisher is the subset of *amqp091.Channel used by AMQPSender.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// AMQPSender publishes alerts to a topic exchange with routing key
// "alert.<channel>".
type AMQPSender struct {
	conn     *amqp091.Connection
	channel  publisher
	exchange string
}

// NewAMQPSender dials url and declares exchange.
func NewAMQPSender(url, exchange string) (*AMQPSender, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPSender{conn: conn, channel: ch, exchange: exchange}, nil
}

// RoutingKey returns the routing key for channel.
func RoutingKey(channel Channel) string {
	return "alert." + string(channel)
}

// Send implements Sender.
func (s *AMQPSender) Send(ctx context.Context, channel Channel, recipient, message string) bool {
	body, err := json.Marshal(Message{
		Channel:   channel,
		Recipient: recipient,
		Body:      message,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		logger.Get().Errorw("Failed to encode alert", "channel", channel, "error", err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = s.channel.PublishWithContext(
		ctx,
		s.exchange,          // exchange
		RoutingKey(channel), // routing key
		false,               // mandatory
		false,               // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		logger.Get().Errorw("Failed to publish alert", "channel", channel, "exchange", s.exchange, "error", err)
		return false
	}
	return true
}

// Close closes the channel and connection.
func (s *AMQPSender) Close() error {
	if ch, ok := s.channel.(*amqp091.Channel); ok && ch != nil {
		ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
