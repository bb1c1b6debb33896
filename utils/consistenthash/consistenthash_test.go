package consistenthash

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twmb/murmur3"
)

func TestGetWithDeterministicHash(t *testing.T) {
	// Hash keys to their numeric value so ring positions are predictable.
	// Single replica keeps the "#0" virtual suffix trivial to strip.
	ring := New(1, func(data []byte) uint32 {
		key := string(data)
		if len(key) > 2 && key[len(key)-2:] == "#0" {
			key = key[:len(key)-2]
		}
		n, err := strconv.Atoi(key)
		if err != nil {
			t.Fatalf("unexpected key %q", data)
		}
		return uint32(n)
	})
	ring.Add("10", "20", "30")

	cases := map[string]string{
		"5":  "10",
		"11": "20",
		"20": "20",
		"27": "30",
		"31": "10", // wraps around
	}
	for key, want := range cases {
		assert.Equal(t, want, ring.Get(key), "key %s", key)
	}
}

func TestEmptyRing(t *testing.T) {
	ring := New(50, nil)
	assert.Equal(t, "", ring.Get("anything"))
	assert.Equal(t, 0, ring.Size())
	assert.Empty(t, ring.Nodes())
}

func TestAddIgnoresDuplicatesAndEmpty(t *testing.T) {
	ring := New(10, nil)
	ring.Add("node-1", "node-1", "")
	assert.Equal(t, 1, ring.Size())
	assert.Equal(t, "node-1", ring.Get("some-key"))
}

func TestRemove(t *testing.T) {
	ring := New(50, nil)
	ring.Add("node-1", "node-2", "node-3")
	assert.Equal(t, 3, ring.Size())

	ring.Remove("node-2")
	assert.Equal(t, 2, ring.Size())

	for i := 0; i < 200; i++ {
		node := ring.Get(fmt.Sprintf("channel:%d", i))
		assert.NotEqual(t, "node-2", node)
		assert.NotEqual(t, "", node)
	}

	// Removing an unknown node is a no-op.
	ring.Remove("node-9")
	assert.Equal(t, 2, ring.Size())
}

func TestDistributionWithMurmur(t *testing.T) {
	ring := New(100, murmur3.Sum32)
	ring.Add("node-1", "node-2", "node-3", "node-4")

	counts := make(map[string]int)
	const total = 10000
	for i := 0; i < total; i++ {
		counts[ring.Get(fmt.Sprintf("channel:%d", i))]++
	}

	assert.Len(t, counts, 4)
	for node, count := range counts {
		// Each node should carry roughly a quarter of the keys.
		assert.Greater(t, count, total/10, "node %s is starved", node)
	}
}

func TestStableAssignment(t *testing.T) {
	ring := New(50, murmur3.Sum32)
	ring.Add("node-1", "node-2")

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("user:%d", i)
		first := ring.Get(key)
		for j := 0; j < 5; j++ {
			assert.Equal(t, first, ring.Get(key))
		}
	}
}
