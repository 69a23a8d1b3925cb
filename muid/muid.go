// Package muid generates monotonically increasing 64-bit identifiers. Instance
// stores use them as their default identity so snapshots taken from different
// instances of one model can be told apart and ordered by creation time.
//
// An ID is laid out as
//
//	[timestamp ms since Epoch][node][shard][sequence]
//
// where the node and shard widths come from the Layout and the sequence takes
// whatever bits remain.
package muid

import (
	"crypto/rand"
	"encoding/binary"
	"hash/fnv"
	"math/bits"
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Epoch is the default origin of the timestamp field (2023-11-14T22:13:20Z).
const Epoch int64 = 1700000000000

// Layout describes how the 64 bits of an ID are split.
type Layout struct {
	Node         uint64
	TimestampLen int
	NodeLen      int
	Epoch        int64
}

// MUID is a monotonic unique ID.
type MUID uint64

// String returns the base32 form of m.
func (m MUID) String() string {
	return strconv.FormatUint(uint64(m), 32)
}

// Parse decodes the base32 form produced by String.
func Parse(s string) (MUID, error) {
	v, err := strconv.ParseUint(s, 32, 64)
	if err != nil {
		return 0, err
	}
	return MUID(v), nil
}

// DefaultLayout derives the node field from the hostname, falling back to
// random bytes when the hostname is unavailable.
var DefaultLayout = sync.OnceValue(func() Layout {
	layout := Layout{TimestampLen: 40, NodeLen: 14, Epoch: Epoch}
	mask := uint64(1)<<layout.NodeLen - 1
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		hash := fnv.New64a()
		_, _ = hash.Write([]byte(hostname))
		layout.Node = hash.Sum64() & mask
	} else {
		var b [8]byte
		_, _ = rand.Read(b[:])
		layout.Node = binary.BigEndian.Uint64(b[:]) & mask
	}
	return layout
})

// Generator hands out IDs for one shard. The zero value is not usable; call
// NewGenerator.
type Generator struct {
	node       uint64
	shard      uint64
	epoch      int64
	seqLen     int
	seqMask    uint64
	shardShift int
	nodeShift  int
	timeShift  int
	// last packs the previous timestamp above the previous sequence.
	last atomic.Uint64
}

// NewGenerator returns a generator for shard, reserving shardLen bits for the
// shard index. Zero fields of layout take their defaults.
func NewGenerator(layout Layout, shard uint64, shardLen int) *Generator {
	defaults := DefaultLayout()
	if layout.TimestampLen <= 0 {
		layout.TimestampLen = defaults.TimestampLen
	}
	if layout.NodeLen <= 0 {
		layout.NodeLen = defaults.NodeLen
	}
	if layout.Epoch <= 0 {
		layout.Epoch = defaults.Epoch
	}
	if layout.Node == 0 {
		layout.Node = defaults.Node
	}
	g := &Generator{
		epoch:  layout.Epoch,
		seqLen: 64 - layout.TimestampLen - layout.NodeLen - shardLen,
	}
	g.seqMask = uint64(1)<<g.seqLen - 1
	g.shardShift = g.seqLen
	g.nodeShift = g.seqLen + shardLen
	g.timeShift = g.nodeShift + layout.NodeLen
	g.node = layout.Node & (uint64(1)<<layout.NodeLen - 1)
	g.shard = shard & (uint64(1)<<shardLen - 1)
	return g
}

// Next returns the next ID. It never goes backwards: a clock regression reuses
// the last timestamp and a sequence overflow borrows the next millisecond.
func (g *Generator) Next() MUID {
	for {
		now := uint64(time.Now().UnixMilli() - g.epoch)
		prev := g.last.Load()
		ts, seq := prev>>g.seqLen, prev&g.seqMask
		switch {
		case now > ts:
			seq = 1
		case seq >= g.seqMask:
			now = ts + 1
			seq = 1
		default:
			now = ts
			seq++
		}
		if g.last.CompareAndSwap(prev, now<<g.seqLen|seq) {
			return MUID(now<<g.timeShift | g.node<<g.nodeShift | g.shard<<g.shardShift | seq)
		}
	}
}

// Time returns the wall-clock millisecond encoded in id.
func (g *Generator) Time(id MUID) time.Time {
	return time.UnixMilli(int64(uint64(id)>>g.timeShift) + g.epoch)
}

type pool struct {
	shards []*Generator
	next   atomic.Uint64
}

var shared = sync.OnceValue(func() *pool {
	shardLen := 0
	if n := runtime.NumCPU(); n > 1 {
		shardLen = min(bits.Len(uint(n-1)), 5)
	}
	p := &pool{shards: make([]*Generator, 1<<shardLen)}
	for i := range p.shards {
		p.shards[i] = NewGenerator(DefaultLayout(), uint64(i), shardLen)
	}
	return p
})

// Make returns an ID from the shared generators, rotating across shards so
// concurrent callers rarely contend on one generator.
func Make() MUID {
	p := shared()
	return p.shards[p.next.Add(1)%uint64(len(p.shards))].Next()
}

// MakeString is Make().String().
func MakeString() string {
	return Make().String()
}
