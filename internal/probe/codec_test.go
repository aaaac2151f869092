package probe

import (
	"net"
	"testing"
	"time"

	"NetPulse/internal/model"
)

func TestBatchCodecRoundTrip(t *testing.T) {
	packets := []*model.PacketInfo{
		{
			Timestamp: time.Now().Truncate(time.Microsecond),
			Length:    128,
			FiveTuple: model.FiveTuple{
				SrcIP:    net.ParseIP("10.1.2.3"),
				DstIP:    net.ParseIP("10.4.5.6"),
				SrcPort:  40000,
				DstPort:  443,
				Protocol: 6,
			},
		},
	}
	batch := model.NewPacketBatch(packets)

	data, err := EncodeBatch(batch)
	if err != nil {
		t.Fatalf("EncodeBatch failed: %v", err)
	}

	decoded, err := DecodeBatch(data)
	if err != nil {
		t.Fatalf("DecodeBatch failed: %v", err)
	}
	if decoded.PacketCount != 1 {
		t.Fatalf("decoded %d packets, want 1", decoded.PacketCount)
	}
	if decoded.Refs() != 1 {
		t.Errorf("decoded batch refs = %d, want 1", decoded.Refs())
	}

	got := decoded.Packets[0]
	if !got.FiveTuple.SrcIP.Equal(net.ParseIP("10.1.2.3")) {
		t.Errorf("SrcIP = %s, want 10.1.2.3", got.FiveTuple.SrcIP)
	}
	if got.FiveTuple.DstPort != 443 || got.Length != 128 {
		t.Errorf("decoded packet does not match original: %+v", got)
	}
}

func TestDecodeBatchRejectsGarbage(t *testing.T) {
	if _, err := DecodeBatch([]byte("not a gob stream")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
