package protocol

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func buildUDPPacket(t *testing.T) gopacket.Packet {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x01, 0x02, 0x03, 0x04, 0x05},
		DstMAC:       net.HardwareAddr{0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		SrcIP:    net.ParseIP("192.168.0.1"),
		DstIP:    net.ParseIP("8.8.8.8"),
		Protocol: layers.IPProtocolUDP,
	}
	udp := &layers.UDP{SrcPort: 12345, DstPort: 53}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("checksum setup failed: %v", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	payload := gopacket.Payload([]byte("test-dns-query"))
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, payload); err != nil {
		t.Fatalf("failed to serialize packet: %v", err)
	}

	return gopacket.NewPacket(buf.Bytes(), layers.LayerTypeEthernet, gopacket.Default)
}

func TestParsePacketUDP(t *testing.T) {
	info, err := ParsePacket(buildUDPPacket(t))
	if err != nil {
		t.Fatalf("ParsePacket failed: %v", err)
	}

	ft := info.FiveTuple
	if !ft.SrcIP.Equal(net.ParseIP("192.168.0.1")) {
		t.Errorf("SrcIP = %s, want 192.168.0.1", ft.SrcIP)
	}
	if !ft.DstIP.Equal(net.ParseIP("8.8.8.8")) {
		t.Errorf("DstIP = %s, want 8.8.8.8", ft.DstIP)
	}
	if ft.SrcPort != 12345 || ft.DstPort != 53 {
		t.Errorf("ports = %d->%d, want 12345->53", ft.SrcPort, ft.DstPort)
	}
	if ft.Protocol != 17 {
		t.Errorf("protocol = %d, want 17 (UDP)", ft.Protocol)
	}
	if info.Length == 0 {
		t.Error("packet length should not be zero")
	}
}

func TestParsePacketRejectsNonIP(t *testing.T) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x01, 0x02, 0x03, 0x04, 0x05},
		DstMAC:       net.HardwareAddr{0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b},
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05},
		SourceProtAddress: []byte{192, 168, 0, 1},
		DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
		DstProtAddress:    []byte{192, 168, 0, 2},
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, arp); err != nil {
		t.Fatalf("failed to serialize packet: %v", err)
	}
	packet := gopacket.NewPacket(buf.Bytes(), layers.LayerTypeEthernet, gopacket.Default)

	if _, err := ParsePacket(packet); err == nil {
		t.Fatal("expected error for non-IP packet")
	}
}
