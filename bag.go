package ecs

// Bag is a dense set with O(1) insert, lookup and swap-remove.
// Iteration order is insertion order until the first removal.
type Bag[T comparable] struct {
	items   []T
	indices map[T]int
}

func NewBag[T comparable](capacity int) *Bag[T] {
	return &Bag[T]{
		items:   make([]T, 0, capacity),
		indices: make(map[T]int, capacity),
	}
}

// Add inserts item, returning false if it was already present.
func (b *Bag[T]) Add(item T) bool {
	if b.indices == nil {
		b.indices = make(map[T]int)
	}
	if _, ok := b.indices[item]; ok {
		return false
	}
	b.indices[item] = len(b.items)
	b.items = append(b.items, item)
	return true
}

// Remove deletes item by moving the last element into its slot.
func (b *Bag[T]) Remove(item T) bool {
	idx, ok := b.indices[item]
	if !ok {
		return false
	}
	last := len(b.items) - 1
	if idx != last {
		moved := b.items[last]
		b.items[idx] = moved
		b.indices[moved] = idx
	}
	var zero T
	b.items[last] = zero
	b.items = b.items[:last]
	delete(b.indices, item)
	return true
}

// Pop removes and returns the most recently placed element.
func (b *Bag[T]) Pop() (T, bool) {
	var zero T
	if len(b.items) == 0 {
		return zero, false
	}
	last := len(b.items) - 1
	item := b.items[last]
	b.items[last] = zero
	b.items = b.items[:last]
	delete(b.indices, item)
	return item, true
}

func (b *Bag[T]) Contains(item T) bool {
	_, ok := b.indices[item]
	return ok
}

func (b *Bag[T]) Len() int {
	return len(b.items)
}

func (b *Bag[T]) At(i int) T {
	return b.items[i]
}

// Items returns the backing slice. It must not be modified or retained
// across calls that mutate the bag.
func (b *Bag[T]) Items() []T {
	return b.items
}

func (b *Bag[T]) Clear() {
	clear(b.items)
	b.items = b.items[:0]
	clear(b.indices)
}

// Clone returns an independent copy.
func (b *Bag[T]) Clone() *Bag[T] {
	out := NewBag[T](len(b.items))
	for _, item := range b.items {
		out.Add(item)
	}
	return out
}
