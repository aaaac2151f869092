package model

import "sync/atomic"

// PacketBatch is an immutable bundle of decoded packets shared between the
// coordinator and every report host. Fan-out hands out references, never
// copies: each receiver holds one reference and releases it when done.
// The reference count is the only cross-goroutine mutation on a batch.
type PacketBatch struct {
	Packets     []*PacketInfo
	PacketCount int

	refs      atomic.Int32
	onRelease func(*PacketBatch)
}

// NewPacketBatch creates a batch holding the given packets. The caller owns
// the initial reference.
func NewPacketBatch(packets []*PacketInfo) *PacketBatch {
	b := &PacketBatch{
		Packets:     packets,
		PacketCount: len(packets),
	}
	b.refs.Store(1)
	return b
}

// SetReleaseFunc installs a hook invoked once, when the last reference is
// released. Must be called before the batch is shared.
func (b *PacketBatch) SetReleaseFunc(fn func(*PacketBatch)) {
	b.onRelease = fn
}

// Retain adds a reference. Called by ReportHost.ProcessBatch before each
// per-host enqueue attempt; a dropped batch releases it again at once.
func (b *PacketBatch) Retain() {
	b.refs.Add(1)
}

// Release drops a reference. The last release fires the release hook.
func (b *PacketBatch) Release() {
	if b.refs.Add(-1) == 0 && b.onRelease != nil {
		b.onRelease(b)
	}
}

// Refs returns the current reference count.
func (b *PacketBatch) Refs() int32 {
	return b.refs.Load()
}
