package ecs

import (
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"
)

// World is the composition root: entity registry, component store, query
// cache, relationship index, scheduler and the deferred operation queue.
// A World is not safe for concurrent use.
type World struct {
	cfg Config
	log *zap.Logger

	registry  *entityRegistry
	store     *componentStore
	cache     *queryCache
	relations *relationIndex
	scheduler *Scheduler
	opQueue   opQueue

	locked    bool
	lockDepth int

	tags   map[string]EntityID
	groups map[string]*Bag[EntityID]
}

// Option customizes a World at construction.
type Option func(*World)

// WithLogger sets the world's logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(w *World) {
		if log != nil {
			w.log = log
		}
	}
}

// NewWorld creates an empty world.
func NewWorld(cfg Config, opts ...Option) *World {
	cfg = cfg.withDefaults()
	w := &World{
		cfg:     cfg,
		log:     zap.NewNop(),
		opQueue: newOpQueue(),
		tags:    make(map[string]EntityID),
		groups:  make(map[string]*Bag[EntityID]),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.registry = newEntityRegistry(cfg.World.InitialCapacity)
	w.cache = newQueryCache()
	w.store = newComponentStore(w.registry, w.log)
	w.store.onCreate = append(w.store.onCreate, w.cache.archetypeCreated)
	w.relations = newRelationIndex(w.store, w.registry)
	w.scheduler = newScheduler(w)
	return w
}

func (w *World) Config() Config {
	return w.cfg
}

func (w *World) Logger() *zap.Logger {
	return w.log
}

// CreateEntity allocates an entity with no components. Creation is never
// deferred, even while the world is locked.
func (w *World) CreateEntity() (EntityID, error) {
	e, err := w.registry.create()
	if err != nil {
		return NoEntity, err
	}
	if err := w.store.place(e); err != nil {
		w.registry.recycle(e)
		return NoEntity, err
	}
	return e, nil
}

// CreateEntityWith allocates an entity and attaches values with a single
// structural move. While the world is locked the components arrive at the
// next flush.
func (w *World) CreateEntityWith(values map[ComponentID]any) (EntityID, error) {
	e, err := w.CreateEntity()
	if err != nil {
		return NoEntity, err
	}
	b := w.Edit(e)
	for _, cid := range sortedKeys(values) {
		b.Add(cid, values[cid])
	}
	if err := b.Commit(); err != nil {
		w.deleteEntity(e)
		return NoEntity, err
	}
	return e, nil
}

// DeleteEntity destroys e. Relationship edges pointing at e are removed,
// its tags and group memberships dropped and remove observers fired for
// every component it held. Deleting an invalid entity is a no-op.
func (w *World) DeleteEntity(e EntityID) error {
	if !w.registry.isValid(e) {
		return nil
	}
	if w.locked {
		w.opQueue.enqueueDestroy(e)
		return nil
	}
	return w.deleteEntity(e)
}

func (w *World) deleteEntity(e EntityID) error {
	if !w.registry.isValid(e) {
		return nil
	}
	w.relations.untrackSubject(e)
	if err := w.relations.cleanup(e); err != nil {
		return fmt.Errorf("delete %v: %w", e, err)
	}
	w.dropLabels(e)
	return w.store.destroy(e)
}

func (w *World) IsValid(e EntityID) bool {
	return w.registry.isValid(e)
}

// AddComponent attaches cid with value v. If e already has cid the value is
// overwritten in place and no observers fire. Relation components take an
// EntityID target and go through the relationship index.
func (w *World) AddComponent(e EntityID, cid ComponentID, v any) error {
	if !w.registry.isValid(e) {
		return InvalidEntityError{Entity: e}
	}
	if err := w.store.checkValue(cid, v); err != nil {
		return err
	}
	if info, _ := w.store.info(cid); info.relation {
		target, ok := v.(EntityID)
		if !ok {
			return ComponentTypeError{Component: cid, Value: v}
		}
		if !w.registry.isValid(target) {
			return InvalidEntityError{Entity: target}
		}
	}
	if w.locked && !w.HasComponent(e, cid) {
		w.opQueue.enqueueComponentOp(operation{typ: opAddComponent, entity: e, comp: cid, value: v})
		return nil
	}
	return w.addComponent(e, cid, v)
}

func (w *World) addComponent(e EntityID, cid ComponentID, v any) error {
	if info, ok := w.store.info(cid); ok && info.relation {
		target, ok := v.(EntityID)
		if !ok {
			return ComponentTypeError{Component: cid, Value: v}
		}
		return w.relations.add(e, cid, target)
	}
	m, ok := w.store.maskOf(e)
	if !ok {
		return InvalidEntityError{Entity: e}
	}
	m.Mark(uint32(cid))
	return w.store.transmute(e, m, cid, v, true)
}

// RemoveComponent detaches cid. Removing an absent component is a no-op.
func (w *World) RemoveComponent(e EntityID, cid ComponentID) error {
	if !w.registry.isValid(e) {
		return InvalidEntityError{Entity: e}
	}
	if _, ok := w.store.info(cid); !ok {
		return UnknownComponentError{Component: cid}
	}
	if !w.HasComponent(e, cid) {
		return nil
	}
	if w.locked {
		w.opQueue.enqueueComponentOp(operation{typ: opRemoveComponent, entity: e, comp: cid})
		return nil
	}
	return w.removeComponent(e, cid)
}

func (w *World) removeComponent(e EntityID, cid ComponentID) error {
	if info, ok := w.store.info(cid); ok && info.relation {
		return w.relations.remove(e, cid, NoEntity)
	}
	m, ok := w.store.maskOf(e)
	if !ok {
		return InvalidEntityError{Entity: e}
	}
	if !MaskHas(m, cid) {
		return nil
	}
	m.Unmark(uint32(cid))
	return w.store.transmute(e, m, 0, nil, false)
}

// SetComponent overwrites an existing component value in place. It is not
// structural and is applied immediately even while locked.
func (w *World) SetComponent(e EntityID, cid ComponentID, v any) error {
	if info, ok := w.store.info(cid); ok && info.relation {
		return fmt.Errorf("component %d is a relation: %w", cid, errRelationWrite)
	}
	return w.store.setValue(e, cid, v)
}

// GetComponent returns e's value for cid, or (nil, false) when absent.
func (w *World) GetComponent(e EntityID, cid ComponentID) (any, bool) {
	return w.store.value(e, cid)
}

func (w *World) HasComponent(e EntityID, cid ComponentID) bool {
	m, ok := w.store.maskOf(e)
	return ok && MaskHas(m, cid)
}

// MaskOf returns e's component mask.
func (w *World) MaskOf(e EntityID) (Mask, bool) {
	return w.store.maskOf(e)
}

// ComponentByName resolves the name a component was registered under.
func (w *World) ComponentByName(name string) (ComponentID, bool) {
	return w.store.byName(name)
}

// ComponentName is the inverse of ComponentByName.
func (w *World) ComponentName(cid ComponentID) (string, bool) {
	info, ok := w.store.info(cid)
	if !ok {
		return "", false
	}
	return info.name, true
}

func (w *World) archetypesFor(aspect Aspect) []*archetype {
	return w.cache.get(aspect, w.store.all())
}

// Query returns the archetypes matching aspect. The result is owned by the
// caller; the archetypes themselves are live views.
func (w *World) Query(aspect Aspect) []Archetype {
	matched := w.archetypesFor(aspect)
	out := make([]Archetype, 0, len(matched))
	for _, arch := range matched {
		out = append(out, arch)
	}
	return out
}

// Count returns how many entities match aspect.
func (w *World) Count(aspect Aspect) int {
	total := 0
	for _, arch := range w.archetypesFor(aspect) {
		total += arch.Len()
	}
	return total
}

// Entities yields every entity matching aspect.
func (w *World) Entities(aspect Aspect) iter.Seq[EntityID] {
	return func(yield func(EntityID) bool) {
		for _, arch := range w.archetypesFor(aspect) {
			for _, e := range arch.Entities() {
				if !yield(e) {
					return
				}
			}
		}
	}
}

// Cursor creates a cursor over aspect.
func (w *World) Cursor(aspect Aspect) *Cursor {
	return newCursor(aspect, w)
}

// Relate adds the edge subject -rel-> target.
func (w *World) Relate(subject EntityID, rel ComponentID, target EntityID) error {
	if _, err := w.relations.relationInfo(rel); err != nil {
		return err
	}
	if !w.registry.isValid(subject) {
		return InvalidEntityError{Entity: subject}
	}
	if !w.registry.isValid(target) {
		return InvalidEntityError{Entity: target}
	}
	if w.locked && !w.HasComponent(subject, rel) {
		w.opQueue.enqueueComponentOp(operation{typ: opRelate, entity: subject, comp: rel, target: target})
		return nil
	}
	return w.relations.add(subject, rel, target)
}

// Unrelate removes one edge, or all edges of rel when target is NoEntity.
func (w *World) Unrelate(subject EntityID, rel ComponentID, target EntityID) error {
	if _, err := w.relations.relationInfo(rel); err != nil {
		return err
	}
	if !w.registry.isValid(subject) {
		return nil
	}
	if w.locked {
		w.opQueue.enqueueComponentOp(operation{typ: opUnrelate, entity: subject, comp: rel, target: target})
		return nil
	}
	return w.relations.remove(subject, rel, target)
}

// Targets returns the live targets of subject's rel edges.
func (w *World) Targets(subject EntityID, rel ComponentID) []EntityID {
	return w.relations.targets(subject, rel)
}

// Target returns the first live target, for exclusive relations.
func (w *World) Target(subject EntityID, rel ComponentID) (EntityID, bool) {
	targets := w.relations.targets(subject, rel)
	if len(targets) == 0 {
		return NoEntity, false
	}
	return targets[0], true
}

// Subjects returns every entity with a rel edge pointing at target.
func (w *World) Subjects(target EntityID, rel ComponentID) []EntityID {
	return w.relations.subjects(target, rel)
}

// RebuildRelations recomputes the relationship back-index from storage.
func (w *World) RebuildRelations() {
	w.relations.rebuild()
}

// OnAdd subscribes to cid being added to any entity. It panics with
// ComponentRangeError for ids of MaxComponents or more.
func (w *World) OnAdd(cid ComponentID, fn ComponentObserver) Handle {
	if cid >= MaxComponents {
		panic(ComponentRangeError{Component: cid})
	}
	return w.store.observeAdd(cid, fn)
}

// OnRemove subscribes to cid being removed, including by deletion. It
// panics like OnAdd.
func (w *World) OnRemove(cid ComponentID, fn ComponentObserver) Handle {
	if cid >= MaxComponents {
		panic(ComponentRangeError{Component: cid})
	}
	return w.store.observeRemove(cid, fn)
}

// OnMaskChange subscribes to every structural change.
func (w *World) OnMaskChange(fn MaskObserver) Handle {
	return w.store.observeMask(fn)
}

// Lock defers structural changes until the matching Unlock. Locks nest.
func (w *World) Lock() {
	w.lockDepth++
	w.locked = true
}

// Unlock releases one lock level. Releasing the last one applies every
// deferred operation and returns their combined errors.
func (w *World) Unlock() error {
	if w.lockDepth == 0 {
		return nil
	}
	w.lockDepth--
	if w.lockDepth > 0 {
		return nil
	}
	w.locked = false
	return w.processOperationQueue()
}

func (w *World) Locked() bool {
	return w.locked
}

// Len is the number of live entities.
func (w *World) Len() int {
	return w.registry.alive
}

// Archetypes returns every archetype, including empty ones.
func (w *World) Archetypes() []Archetype {
	all := w.store.all()
	out := make([]Archetype, len(all))
	for i, arch := range all {
		out[i] = arch
	}
	return out
}

func (w *World) Scheduler() *Scheduler {
	return w.scheduler
}

func (w *World) AddSystem(s System) error {
	return w.scheduler.Add(s)
}

// Update runs one scheduler tick.
func (w *World) Update(dt time.Duration) error {
	return w.scheduler.Update(dt)
}

// Reset removes every entity without firing observers. Component
// registrations, systems and observers are kept; ids issued before the
// reset stay invalid.
func (w *World) Reset() error {
	if w.locked {
		return LockedWorldError{}
	}
	w.registry.recycleAll()
	if err := w.store.reset(); err != nil {
		return err
	}
	w.relations.reset()
	w.cache.reset()
	w.opQueue.clear()
	clear(w.tags)
	clear(w.groups)
	return nil
}
