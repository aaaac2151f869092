package pcap

import (
	"log"

	"NetPulse/internal/engine/protocol"
	"NetPulse/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

// Reader reads packets from a pcap file.
type Reader struct {
	handle *pcap.Handle
}

// NewReader creates a new pcap reader for the given file path.
func NewReader(filePath string) (*Reader, error) {
	handle, err := pcap.OpenOffline(filePath)
	if err != nil {
		return nil, err
	}
	return &Reader{handle: handle}, nil
}

// Close closes the pcap handle.
func (r *Reader) Close() {
	r.handle.Close()
}

// ReadBatches reads all packets from the pcap file, groups them into batches
// of at most batchSize, and sends them to the provided channel. It closes the
// channel when done.
func (r *Reader) ReadBatches(out chan<- *model.PacketBatch, batchSize int) {
	defer close(out)
	if batchSize <= 0 {
		batchSize = 64
	}

	var pending []*model.PacketInfo
	flush := func() {
		if len(pending) == 0 {
			return
		}
		out <- model.NewPacketBatch(pending)
		pending = nil
	}

	packetSource := gopacket.NewPacketSource(r.handle, r.handle.LinkType())
	for packet := range packetSource.Packets() {
		info, err := protocol.ParsePacket(packet)
		if err != nil {
			// We log errors from the parser but continue processing.
			// This could be because of unsupported packet types or corrupt data.
			log.Printf("Error parsing packet: %v", err)
			continue
		}
		pending = append(pending, info)
		if len(pending) >= batchSize {
			flush()
		}
	}
	flush()
}
