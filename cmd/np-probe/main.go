package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"NetPulse/internal/engine/protocol"
	"NetPulse/internal/model"
	"NetPulse/internal/probe"
	pcapreader "NetPulse/pkg/pcap"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	"github.com/nats-io/nats.go"
)

const (
	snapshotLen int32 = 1600
	promiscuous       = true
	timeout           = pcap.BlockForever

	defaultBatchSize     = 64
	defaultFlushInterval = 100 * time.Millisecond
)

func main() {
	// --- Command-Line Flag Parsing ---
	mode := flag.String("mode", "sub", "Operating mode: 'pub' to capture and publish, 'replay' to publish a pcap file, 'sub' to subscribe and print.")
	iface := flag.String("iface", "", "Interface to capture packets from (required for pub mode).")
	pcapFile := flag.String("pcap", "", "Pcap file to replay (required for replay mode).")
	natsURL := flag.String("nats", nats.DefaultURL, "NATS server URL.")
	subject := flag.String("subject", "netpulse.packets.batches", "NATS subject for packet batches.")
	batchSize := flag.Int("batch", defaultBatchSize, "Packets per published batch.")
	flag.Parse()

	// --- Mode Dispatch ---
	switch *mode {
	case "pub":
		runProbe(*iface, *natsURL, *subject, *batchSize)
	case "replay":
		runReplay(*pcapFile, *natsURL, *subject, *batchSize)
	case "sub":
		runSubscriber(*natsURL, *subject)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runProbe captures packets live, groups them into batches, and publishes
// them to NATS.
func runProbe(interfaceName, natsURL, subject string, batchSize int) {
	if interfaceName == "" {
		log.Println("Error: -iface flag is required for pub mode.")
		flag.Usage()
		os.Exit(1)
	}
	log.Printf("Starting np-probe in PROBE mode on interface: %s", interfaceName)

	pub, err := probe.NewPublisher(natsURL, subject)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	handle, err := pcap.OpenLive(interfaceName, snapshotLen, promiscuous, timeout)
	if err != nil {
		log.Fatalf("Error opening device %s: %v", interfaceName, err)
	}
	defer handle.Close()

	log.Println("Capture started successfully. Publishing packet batches to NATS...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		var pending []*model.PacketInfo
		flushTimer := time.NewTicker(defaultFlushInterval)
		defer flushTimer.Stop()

		flush := func() {
			if len(pending) == 0 {
				return
			}
			batch := model.NewPacketBatch(pending)
			if err := pub.Publish(batch); err != nil {
				log.Printf("Failed to publish batch: %v", err)
			}
			batch.Release()
			pending = nil
		}

		packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
		packets := packetSource.Packets()
		for {
			select {
			case packet, ok := <-packets:
				if !ok {
					flush()
					return
				}
				info, err := protocol.ParsePacket(packet)
				if err != nil {
					continue // Skip non-IP packets
				}
				pending = append(pending, info)
				if len(pending) >= batchSize {
					flush()
				}
			case <-flushTimer.C:
				flush()
			}
		}
	}()

	<-sigChan
	log.Println("Shutdown signal received, stopping probe.")
}

// runReplay publishes the contents of a pcap file as batches.
func runReplay(pcapFile, natsURL, subject string, batchSize int) {
	if pcapFile == "" {
		log.Println("Error: -pcap flag is required for replay mode.")
		flag.Usage()
		os.Exit(1)
	}

	pub, err := probe.NewPublisher(natsURL, subject)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	reader, err := pcapreader.NewReader(pcapFile)
	if err != nil {
		log.Fatalf("Failed to open pcap file: %v", err)
	}
	defer reader.Close()

	batches := make(chan *model.PacketBatch, 16)
	go reader.ReadBatches(batches, batchSize)

	var published, packets int
	for batch := range batches {
		if err := pub.Publish(batch); err != nil {
			log.Printf("Failed to publish batch: %v", err)
		} else {
			published++
			packets += batch.PacketCount
		}
		batch.Release()
	}
	log.Printf("Replay complete: %d batches (%d packets) published.", published, packets)
}

// runSubscriber prints incoming batches, for debugging the feed.
func runSubscriber(natsURL, subject string) {
	sub, err := probe.NewSubscriber(natsURL, subject)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	err = sub.Start(func(batch *model.PacketBatch) {
		log.Printf("Received batch: %d packets", batch.PacketCount)
		for _, p := range batch.Packets {
			ft := p.FiveTuple
			log.Printf("  %s:%d -> %s:%d proto=%d len=%d", ft.SrcIP, ft.SrcPort, ft.DstIP, ft.DstPort, ft.Protocol, p.Length)
		}
		batch.Release()
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Subscriber stopped.")
}
