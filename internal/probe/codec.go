package probe

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"NetPulse/internal/model"
)

// wireBatch is the on-the-wire shape of a packet batch.
type wireBatch struct {
	Packets []*model.PacketInfo
}

// EncodeBatch serializes a packet batch for transport over NATS.
func EncodeBatch(batch *model.PacketBatch) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wireBatch{Packets: batch.Packets}); err != nil {
		return nil, fmt.Errorf("failed to encode batch: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBatch deserializes a wire message into a fresh batch. The caller owns
// the initial reference.
func DecodeBatch(data []byte) (*model.PacketBatch, error) {
	var wire wireBatch
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}
	return model.NewPacketBatch(wire.Packets), nil
}
