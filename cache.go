package ecs

import "fmt"

var _ Cache[any] = &SimpleCache[any]{}

// SimpleCache is a bounded, append-only keyed store. Indices handed out by
// Register stay valid until Clear.
type SimpleCache[T any] struct {
	items       []T
	itemIndices map[string]int
	maxCapacity int
}

func (c *SimpleCache[T]) GetIndex(key string) (int, bool) {
	index, ok := c.itemIndices[key]
	return index, ok
}

func (c *SimpleCache[T]) GetItem(index int) *T {
	return &c.items[index]
}

// Lookup returns the item registered under key.
func (c *SimpleCache[T]) Lookup(key string) (T, bool) {
	index, ok := c.itemIndices[key]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[index], true
}

func (c *SimpleCache[T]) Register(key string, item T) (int, error) {
	if _, exists := c.itemIndices[key]; exists {
		return -1, fmt.Errorf("key %q already registered", key)
	}
	if len(c.items) >= c.maxCapacity {
		return -1, fmt.Errorf("cache at maximum capacity (%d)", c.maxCapacity)
	}
	idx := len(c.items)
	c.itemIndices[key] = idx
	c.items = append(c.items, item)
	return idx, nil
}

func (c *SimpleCache[T]) Len() int {
	return len(c.items)
}

func (c *SimpleCache[T]) Clear() {
	c.items = c.items[:0]
	c.itemIndices = make(map[string]int)
}
