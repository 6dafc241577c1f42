// Package snowflake wraps bwmarrin/snowflake behind a process-wide node
// used for request and message identifiers.
package snowflake

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	mu   sync.RWMutex
	node *snowflake.Node
)

// Init creates the process-wide generator node. Node IDs must be in
// [0, 1023].
func Init(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}
	mu.Lock()
	node = n
	mu.Unlock()
	return nil
}

// NextID returns the next unique ID. Init must have been called first;
// an uninitialized generator falls back to node 0.
func NextID() int64 {
	mu.RLock()
	n := node
	mu.RUnlock()
	if n == nil {
		if err := Init(0); err != nil {
			return 0
		}
		mu.RLock()
		n = node
		mu.RUnlock()
	}
	return n.Generate().Int64()
}
