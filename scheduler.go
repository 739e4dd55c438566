package ecs

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Scheduler orders systems by priority and before/after constraints and
// runs them once per tick.
type Scheduler struct {
	world   *World
	systems []*scheduledSystem
	order   []*scheduledSystem
	seq     int
}

type scheduledSystem struct {
	system  System
	config  SystemConfig
	enabled bool
	seq     int
}

func newScheduler(w *World) *Scheduler {
	return &Scheduler{world: w}
}

// Add registers a system and re-resolves the run order. A duplicate name or
// an ordering cycle is rejected and leaves the scheduler unchanged.
func (s *Scheduler) Add(system System) error {
	cfg := system.Config()
	if cfg.Name == "" {
		return errors.New("system name must not be empty")
	}
	if s.find(cfg.Name) != nil {
		return DuplicateSystemError{Name: cfg.Name}
	}
	s.seq++
	entry := &scheduledSystem{system: system, config: cfg, enabled: true, seq: s.seq}
	candidate := append(slices.Clone(s.systems), entry)
	order, err := resolveOrder(candidate)
	if err != nil {
		s.world.log.Error("system ordering rejected",
			zap.String("system", cfg.Name),
			zap.Error(err),
		)
		return err
	}
	s.systems = candidate
	s.order = order
	return nil
}

// Remove unregisters the named system.
func (s *Scheduler) Remove(name string) bool {
	idx := slices.IndexFunc(s.systems, func(e *scheduledSystem) bool { return e.config.Name == name })
	if idx < 0 {
		return false
	}
	s.systems = slices.Delete(s.systems, idx, idx+1)
	// Removing a node cannot introduce a cycle.
	s.order, _ = resolveOrder(s.systems)
	return true
}

func (s *Scheduler) SetEnabled(name string, enabled bool) bool {
	entry := s.find(name)
	if entry == nil {
		return false
	}
	entry.enabled = enabled
	return true
}

func (s *Scheduler) Enabled(name string) bool {
	entry := s.find(name)
	return entry != nil && entry.enabled
}

// Order lists system names in resolved run order.
func (s *Scheduler) Order() []string {
	names := make([]string, len(s.order))
	for i, entry := range s.order {
		names[i] = entry.config.Name
	}
	return names
}

func (s *Scheduler) Len() int {
	return len(s.systems)
}

// Update runs every enabled system once. The world stays locked for the
// whole tick; structural changes requested by systems are applied at the
// end, after the last system returns. System errors do not stop the tick.
func (s *Scheduler) Update(dt time.Duration) (err error) {
	s.world.Lock()
	defer func() {
		if flushErr := s.world.Unlock(); flushErr != nil {
			err = multierr.Append(err, flushErr)
		}
	}()
	for _, entry := range s.order {
		if !entry.enabled {
			continue
		}
		if sysErr := entry.system.Update(s.world, dt); sysErr != nil {
			s.world.log.Warn("system failed",
				zap.String("system", entry.config.Name),
				zap.Error(sysErr),
			)
			err = multierr.Append(err, sysErr)
		}
	}
	return err
}

func (s *Scheduler) find(name string) *scheduledSystem {
	for _, entry := range s.systems {
		if entry.config.Name == name {
			return entry
		}
	}
	return nil
}

// resolveOrder sorts by priority (stable on registration order), then runs
// a depth-first topological sort over the before/after constraints.
// Constraints naming unknown systems are ignored.
func resolveOrder(systems []*scheduledSystem) ([]*scheduledSystem, error) {
	sorted := slices.Clone(systems)
	slices.SortStableFunc(sorted, func(a, b *scheduledSystem) int {
		return cmp.Or(
			cmp.Compare(a.config.Priority, b.config.Priority),
			cmp.Compare(a.seq, b.seq),
		)
	})

	byName := make(map[string]*scheduledSystem, len(sorted))
	rank := make(map[*scheduledSystem]int, len(sorted))
	for i, entry := range sorted {
		byName[entry.config.Name] = entry
		rank[entry] = i
	}
	preds := make(map[*scheduledSystem][]*scheduledSystem, len(sorted))
	for _, entry := range sorted {
		for _, name := range entry.config.After {
			if dep, ok := byName[name]; ok {
				preds[entry] = append(preds[entry], dep)
			}
		}
		for _, name := range entry.config.Before {
			if next, ok := byName[name]; ok {
				preds[next] = append(preds[next], entry)
			}
		}
	}
	for entry, list := range preds {
		slices.SortFunc(list, func(a, b *scheduledSystem) int { return rank[a] - rank[b] })
		preds[entry] = slices.Compact(list)
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*scheduledSystem]int, len(sorted))
	out := make([]*scheduledSystem, 0, len(sorted))
	var path []string

	var visit func(entry *scheduledSystem) error
	visit = func(entry *scheduledSystem) error {
		switch state[entry] {
		case done:
			return nil
		case visiting:
			start := slices.Index(path, entry.config.Name)
			cycle := append(slices.Clone(path[start:]), entry.config.Name)
			return CycleError{Systems: cycle}
		}
		state[entry] = visiting
		path = append(path, entry.config.Name)
		for _, dep := range preds[entry] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[entry] = done
		out = append(out, entry)
		return nil
	}

	for _, entry := range sorted {
		if err := visit(entry); err != nil {
			return nil, err
		}
	}
	return out, nil
}
