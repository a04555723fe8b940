// Package channel delivers text messages to users over their messaging
// transport.
package channel

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nhle/task-assistant/internal/model"
)

// Sender delivers text to one address on a single transport.
type Sender interface {
	Send(ctx context.Context, address, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, address, text string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, address, text string) error {
	return f(ctx, address, text)
}

// Outbound delivers text to an address on the named channel.
type Outbound interface {
	Send(ctx context.Context, ch model.Channel, address, text string) error
}

// Router dispatches outbound messages to the sender registered for each
// channel. Channels without a sender go to the fallback.
type Router struct {
	mu       sync.RWMutex
	senders  map[model.Channel]Sender
	fallback Sender
	logger   *zap.Logger
}

// NewRouter creates a router whose fallback logs messages instead of
// delivering them.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		senders:  make(map[model.Channel]Sender),
		fallback: NewLogSender(logger),
		logger:   logger.Named("outbound"),
	}
}

// Register sets the sender for ch, replacing any previous one.
func (r *Router) Register(ch model.Channel, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[ch] = s
}

// Send delivers text through the sender registered for ch.
func (r *Router) Send(ctx context.Context, ch model.Channel, address, text string) error {
	r.mu.RLock()
	s, ok := r.senders[ch]
	r.mu.RUnlock()
	if !ok {
		s = r.fallback
	}

	if err := s.Send(ctx, address, text); err != nil {
		return fmt.Errorf("sending via %s to %s: %w", ch, address, err)
	}
	r.logger.Debug("message sent",
		zap.String("channel", string(ch)),
		zap.String("address", address),
		zap.Int("bytes", len(text)),
	)
	return nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("undelivered")}
}

// Send logs the message.
func (s *LogSender) Send(_ context.Context, address, text string) error {
	s.logger.Info("no transport for message",
		zap.String("address", address),
		zap.String("text", text),
	)
	return nil
}

// ConsoleMessage is a message delivered to a local console session.
type ConsoleMessage struct {
	Address string
	Text    string
}

// ConsoleSender hands messages to an in-process reader, such as the chat
// UI. Messages are dropped when the reader falls behind.
type ConsoleSender struct {
	ch chan ConsoleMessage
}

// NewConsoleSender creates a ConsoleSender buffering up to size messages.
func NewConsoleSender(size int) *ConsoleSender {
	return &ConsoleSender{ch: make(chan ConsoleMessage, size)}
}

// Send queues the message for the reader.
func (s *ConsoleSender) Send(ctx context.Context, address, text string) error {
	select {
	case s.ch <- ConsoleMessage{Address: address, Text: text}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("console queue full, dropping message for %s", address)
	}
}

// Messages returns the queue the reader consumes.
func (s *ConsoleSender) Messages() <-chan ConsoleMessage {
	return s.ch
}
