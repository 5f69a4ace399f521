package broker

import (
	"hash/fnv"
	"sync/atomic"
)

// HashPartition maps key onto one of n partitions with FNV-1a, the same hash
// segmentio/kafka-go's Hash balancer uses, so every driver routes a key identically.
func HashPartition(key []byte, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write(key)
	p := int32(h.Sum32()) % int32(n)
	if p < 0 {
		p = -p
	}
	return int(p)
}

// roundRobin hands out partitions in turn for unkeyed records.
type roundRobin struct {
	next atomic.Uint32
}

func (r *roundRobin) partition(n int) int {
	if n <= 1 {
		return 0
	}
	return int((r.next.Add(1) - 1) % uint32(n))
}

// routePartition applies the routing policy: hash for keyed, round-robin otherwise.
func routePartition(rr *roundRobin, key []byte, n int) int {
	if key == nil {
		return rr.partition(n)
	}
	return HashPartition(key, n)
}
