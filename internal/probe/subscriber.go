package probe

import (
	"log"

	"NetPulse/internal/model"

	"github.com/nats-io/nats.go"
)

// BatchHandler is a function that processes a received packet batch. The
// handler owns the batch's initial reference.
type BatchHandler func(batch *model.PacketBatch)

// Subscriber is responsible for subscribing to a NATS subject and decoding
// packet batches.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(natsURL, subject string) (*Subscriber, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", natsURL)
	return &Subscriber{nc: nc, subject: subject}, nil
}

// Start subscribes to the configured subject and hands every decoded batch
// to the handler.
func (s *Subscriber) Start(handler BatchHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		batch, err := DecodeBatch(msg.Data)
		if err != nil {
			log.Printf("Error decoding packet batch: %v", err)
			return
		}
		handler(batch)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for packet batches...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
