package consistenthash

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// Hash maps a key to a position on the ring.
type Hash func(data []byte) uint32

// Ring is a consistent hash ring used to pin channel topics to gateway
// nodes, so each node only delivers the topics it owns.
type Ring struct {
	mu       sync.RWMutex
	hash     Hash
	replicas int
	keys     []uint32
	hashMap  map[uint32]string
	nodes    map[string]bool
}

// New creates a ring with the given number of virtual nodes per real node.
// A nil hash function falls back to SHA256.
func New(replicas int, fn Hash) *Ring {
	r := &Ring{
		replicas: replicas,
		hash:     fn,
		hashMap:  make(map[uint32]string),
		nodes:    make(map[string]bool),
	}
	if r.hash == nil {
		r.hash = defaultHash
	}
	if r.replicas <= 0 {
		r.replicas = 50
	}
	return r
}

func defaultHash(data []byte) uint32 {
	hash := sha256.Sum256(data)
	return binary.BigEndian.Uint32(hash[:4])
}

// Add adds nodes to the ring. Empty names and duplicates are ignored.
func (r *Ring) Add(nodes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, node := range nodes {
		if node == "" || r.nodes[node] {
			continue
		}
		r.nodes[node] = true

		for i := 0; i < r.replicas; i++ {
			virtualKey := fmt.Sprintf("%s#%d", node, i)
			hash := r.hash([]byte(virtualKey))
			r.keys = append(r.keys, hash)
			r.hashMap[hash] = node
		}
	}
	slices.Sort(r.keys)
}

// Remove removes nodes and their virtual nodes from the ring.
func (r *Ring) Remove(nodes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, node := range nodes {
		if node == "" || !r.nodes[node] {
			continue
		}
		delete(r.nodes, node)

		for i := 0; i < r.replicas; i++ {
			virtualKey := fmt.Sprintf("%s#%d", node, i)
			hash := r.hash([]byte(virtualKey))
			delete(r.hashMap, hash)
			if idx, found := slices.BinarySearch(r.keys, hash); found {
				r.keys = slices.Delete(r.keys, idx, idx+1)
			}
		}
	}
}

// Get returns the node owning the given key, or "" for an empty ring.
func (r *Ring) Get(key string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.keys) == 0 {
		return ""
	}

	hash := r.hash([]byte(key))
	idx := sort.Search(len(r.keys), func(i int) bool {
		return r.keys[i] >= hash
	})
	// Wrap around the ring.
	if idx == len(r.keys) {
		idx = 0
	}
	return r.hashMap[r.keys[idx]]
}

// Nodes returns the real nodes currently on the ring.
func (r *Ring) Nodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]string, 0, len(r.nodes))
	for node := range r.nodes {
		nodes = append(nodes, node)
	}
	return nodes
}

// Size returns the number of real nodes.
func (r *Ring) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}
