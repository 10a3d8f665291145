// Package snowflake generates unique, time-ordered 64-bit message ids:
// 41 bits of milliseconds since a custom epoch, 10 bits of node id and
// 12 bits of per-millisecond sequence. Ids sort by creation time, which
// matches the descending clustering order of the messages table.
package snowflake

import (
	"errors"
	"sync"
	"time"
)

const (
	nodeBits = 10
	seqBits  = 12

	maxNode = -1 ^ (-1 << nodeBits)
	seqMask = -1 ^ (-1 << seqBits)

	timeShift = nodeBits + seqBits
	nodeShift = seqBits

	// 2025-01-01 00:00:00 UTC
	epoch int64 = 1735689600000
)

var ErrBadNode = errors.New("snowflake: node id must be between 0 and 1023")

type Node struct {
	mu   sync.Mutex
	last int64
	node int64
	seq  int64
}

// NewNode creates a generator for the given node id. Each running
// process must use a distinct node id to keep ids globally unique.
func NewNode(node int64) (*Node, error) {
	if node < 0 || node > maxNode {
		return nil, ErrBadNode
	}
	return &Node{node: node}, nil
}

// Generate returns the next id. Safe for concurrent use.
func (n *Node) Generate() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < n.last {
		// Clock went backwards; hold at the last timestamp rather than
		// risk duplicate ids.
		now = n.last
	}

	if now == n.last {
		n.seq = (n.seq + 1) & seqMask
		if n.seq == 0 {
			// Sequence exhausted for this millisecond; spin to the next.
			for now <= n.last {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		n.seq = 0
	}
	n.last = now

	return ((now - epoch) << timeShift) | (n.node << nodeShift) | n.seq
}

// Time extracts the creation timestamp embedded in an id.
func Time(id int64) time.Time {
	return time.UnixMilli((id >> timeShift) + epoch)
}
