package ecs

// ComponentObserver is called when a component is added to or removed from
// an entity.
type ComponentObserver func(e EntityID, cid ComponentID)

// MaskObserver is called after every structural change with the entity's
// previous and new masks.
type MaskObserver func(e EntityID, oldMask, newMask Mask)

// Handle unsubscribes an observer.
type Handle struct {
	unsubscribe func()
}

// Unsubscribe removes the observer. Calling it more than once is a no-op.
func (h Handle) Unsubscribe() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
}

type observerList[F any] struct {
	nextID uint64
	items  []observerEntry[F]
}

type observerEntry[F any] struct {
	id uint64
	fn F
}

func (l *observerList[F]) add(fn F) Handle {
	l.nextID++
	id := l.nextID
	l.items = append(l.items, observerEntry[F]{id: id, fn: fn})
	return Handle{unsubscribe: func() { l.remove(id) }}
}

// remove keeps subscription order, so callbacks fire in the order added.
func (l *observerList[F]) remove(id uint64) {
	for i, entry := range l.items {
		if entry.id == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			return
		}
	}
}

func (l *observerList[F]) len() int {
	return len(l.items)
}

// snapshot guards iteration against callbacks that unsubscribe.
func (l *observerList[F]) snapshot() []observerEntry[F] {
	if len(l.items) == 0 {
		return nil
	}
	out := make([]observerEntry[F], len(l.items))
	copy(out, l.items)
	return out
}
