package ecs

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type operation struct {
	typ    operationType
	entity EntityID
	comp   ComponentID
	value  any
	target EntityID
	batch  *Batch
}

type operationType int

const (
	opAddComponent operationType = iota
	opRemoveComponent
	opBatch
	opRelate
	opUnrelate
	opDestroy
)

func (t operationType) String() string {
	switch t {
	case opAddComponent:
		return "add"
	case opRemoveComponent:
		return "remove"
	case opBatch:
		return "batch"
	case opRelate:
		return "relate"
	case opUnrelate:
		return "unrelate"
	case opDestroy:
		return "destroy"
	}
	return "unknown"
}

// opQueue holds structural changes requested while the world is locked.
// Component changes run first in request order, destroys last.
type opQueue struct {
	componentOps   []operation
	destroyOps     []operation
	pendingDestroy map[EntityID]struct{}
}

func newOpQueue() opQueue {
	return opQueue{
		pendingDestroy: make(map[EntityID]struct{}),
	}
}

func (q *opQueue) len() int {
	return len(q.componentOps) + len(q.destroyOps)
}

func (q *opQueue) enqueueComponentOp(op operation) {
	// Changes to an entity already queued for destruction are moot.
	if _, isDestroyed := q.pendingDestroy[op.entity]; isDestroyed {
		return
	}
	q.componentOps = append(q.componentOps, op)
}

func (q *opQueue) enqueueBatch(b *Batch) {
	q.enqueueComponentOp(operation{typ: opBatch, entity: b.entity, batch: b})
}

func (q *opQueue) enqueueDestroy(e EntityID) {
	if _, exists := q.pendingDestroy[e]; exists {
		return
	}
	q.pendingDestroy[e] = struct{}{}
	q.destroyOps = append(q.destroyOps, operation{typ: opDestroy, entity: e})
}

func (q *opQueue) clear() {
	clear(q.componentOps)
	q.componentOps = q.componentOps[:0]
	clear(q.destroyOps)
	q.destroyOps = q.destroyOps[:0]
	clear(q.pendingDestroy)
}

// processOperationQueue applies everything queued during the lock. Ops on
// entities that became invalid in the meantime are skipped; failures are
// collected and returned together.
func (w *World) processOperationQueue() error {
	q := &w.opQueue
	if q.len() == 0 {
		return nil
	}
	w.log.Debug("flushing deferred operations",
		zap.Int("component_ops", len(q.componentOps)),
		zap.Int("destroy_ops", len(q.destroyOps)),
	)

	var errs error
	for _, op := range q.componentOps {
		if _, doomed := q.pendingDestroy[op.entity]; doomed {
			continue
		}
		if !w.registry.isValid(op.entity) {
			continue
		}
		if err := w.applyOp(op); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("deferred %s on %v: %w", op.typ, op.entity, err))
		}
	}
	for _, op := range q.destroyOps {
		if !w.registry.isValid(op.entity) {
			continue
		}
		if err := w.deleteEntity(op.entity); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("deferred destroy of %v: %w", op.entity, err))
		}
	}
	q.clear()
	if errs != nil {
		w.log.Error("deferred operations failed", zap.Error(errs))
	}
	return errs
}

func (w *World) applyOp(op operation) error {
	switch op.typ {
	case opAddComponent:
		return w.addComponent(op.entity, op.comp, op.value)
	case opRemoveComponent:
		return w.removeComponent(op.entity, op.comp)
	case opBatch:
		m, ok := op.batch.rebase()
		if !ok {
			return nil
		}
		return w.store.applyBatchChanges(op.entity, m, op.batch.adds)
	case opRelate:
		return w.relations.add(op.entity, op.comp, op.target)
	case opUnrelate:
		return w.relations.remove(op.entity, op.comp, op.target)
	}
	return fmt.Errorf("unknown operation %d", op.typ)
}
