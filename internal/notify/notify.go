// Package notify publishes security alerts to out-of-process delivery
// workers. Delivery itself (SMS, WhatsApp, email) is not done here.
package notify

import (
	"context"
	"sync"
	"time"

	"finora/internal/logger"
)

// Channel names a delivery channel.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

// Sender hands a message to a delivery channel. It reports success and never
// returns an error; failures are logged by the implementation.
type Sender interface {
	Send(ctx context.Context, channel Channel, recipient, message string) bool
}

// LogSender writes alerts to the application log. Used when no broker is
// configured.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(_ context.Context, channel Channel, recipient, message string) bool {
	logger.Get().Infow("Security alert",
		"channel", channel,
		"recipient", recipient,
		"message", message,
	)
	return true
}

// Recipients maps each channel to its destination. Empty entries are skipped.
type Recipients map[Channel]string

// Alerter fans a message out to every configured channel.
type Alerter struct {
	sender     Sender
	recipients Recipients
	timeout    time.Duration
	wg         sync.WaitGroup
}

// NewAlerter creates an Alerter.
func NewAlerter(sender Sender, recipients Recipients) *Alerter {
	if sender == nil {
		sender = LogSender{}
	}
	return &Alerter{sender: sender, recipients: recipients, timeout: 10 * time.Second}
}

// Channels returns the channels that have a recipient, in a fixed order.
func (a *Alerter) Channels() []Channel {
	var out []Channel
	for _, ch := range []Channel{ChannelSMS, ChannelWhatsApp, ChannelEmail} {
		if a.recipients[ch] != "" {
			out = append(out, ch)
		}
	}
	return out
}

// Alert sends message on every channel in the background and returns
// immediately.
func (a *Alerter) Alert(message string) {
	for _, ch := range a.Channels() {
		a.wg.Add(1)
		go func(ch Channel) {
			defer a.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
			defer cancel()
			if !a.sender.Send(ctx, ch, a.recipients[ch], message) {
				logger.Get().Warnw("Security alert not delivered", "channel", ch)
			}
		}(ch)
	}
}

// Send delivers message on every channel synchronously and reports the
// outcome per channel.
func (a *Alerter) Send(ctx context.Context, message string) map[Channel]bool {
	results := make(map[Channel]bool)
	for _, ch := range a.Channels() {
		results[ch] = a.sender.Send(ctx, ch, a.recipients[ch], message)
	}
	return results
}

// Wait blocks until background alerts finish.
func (a *Alerter) Wait() {
	a.wg.Wait()
}
