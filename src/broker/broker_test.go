package broker

import (
	"testing"
)

func TestHashPartition_Stable(t *testing.T) {
	keys := [][]byte{[]byte("u1"), []byte("u2"), []byte(""), []byte("a-much-longer-key")}

	for _, key := range keys {
		first := HashPartition(key, 6)
		if first < 0 || first >= 6 {
			t.Fatalf("HashPartition(%q) = %d, out of range", key, first)
		}
		for i := 0; i < 10; i++ {
			if got := HashPartition(key, 6); got != first {
				t.Errorf("HashPartition(%q) = %d, want %d", key, got, first)
			}
		}
	}
}

func TestHashPartition_SinglePartition(t *testing.T) {
	if got := HashPartition([]byte("anything"), 1); got != 0 {
		t.Errorf("Expected partition 0, got %d", got)
	}
}

func TestRoutePartition_RoundRobinForNilKey(t *testing.T) {
	rr := &roundRobin{}

	var got []int
	for i := 0; i < 6; i++ {
		got = append(got, routePartition(rr, nil, 3))
	}

	want := []int{0, 1, 2, 0, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestRoutePartition_EmptyKeyIsHashed(t *testing.T) {
	rr := &roundRobin{}
	want := HashPartition([]byte{}, 3)

	for i := 0; i < 5; i++ {
		if got := routePartition(rr, []byte{}, 3); got != want {
			t.Errorf("Expected empty key to hash to %d, got %d", want, got)
		}
	}
}

func TestCommitOffsets_HighestPerPartition(t *testing.T) {
	msgs := []Message{
		{Partition: 0, Offset: 4},
		{Partition: 1, Offset: 2},
		{Partition: 0, Offset: 7},
		{Partition: 0, Offset: 5},
	}

	offsets := commitOffsets(msgs)
	if offsets[0] != 7 {
		t.Errorf("Expected partition 0 offset 7, got %d", offsets[0])
	}
	if offsets[1] != 2 {
		t.Errorf("Expected partition 1 offset 2, got %d", offsets[1])
	}
	if len(offsets) != 2 {
		t.Errorf("Expected 2 partitions, got %d", len(offsets))
	}
}
