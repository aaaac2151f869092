package probe

import (
	"log"

	"NetPulse/internal/model"

	"github.com/nats-io/nats.go"
)

// Publisher is responsible for publishing packet batches to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(natsURL, subject string) (*Publisher, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", natsURL)
	return &Publisher{nc: nc, subject: subject}, nil
}

// Publish serializes a packet batch and publishes it to the configured NATS
// subject. The caller keeps its batch reference.
func (p *Publisher) Publish(batch *model.PacketBatch) error {
	data, err := EncodeBatch(batch)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
