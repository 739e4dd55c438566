package ecs

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SnapshotVersion is the snapshot format written by Save.
const SnapshotVersion = 1

// Snapshot is the self-describing serialized form of a world. Component
// values are plain data produced by each component's Serializer.
type Snapshot struct {
	Version           int                   `json:"version" yaml:"version"`
	NextEntityIndex   int                   `json:"nextEntityIndex" yaml:"nextEntityIndex"`
	EntityGenerations []int                 `json:"entityGenerations" yaml:"entityGenerations"`
	FreeEntityIDs     []EntityID            `json:"freeEntityIds" yaml:"freeEntityIds"`
	Archetypes        []ArchetypeSnapshot   `json:"archetypes" yaml:"archetypes"`
	Tags              map[string]EntityID   `json:"tags" yaml:"tags"`
	Groups            map[string][]EntityID `json:"groups" yaml:"groups"`
}

// ArchetypeSnapshot holds one archetype's rows. Columns are keyed by the
// decimal component id and are parallel to Entities.
type ArchetypeSnapshot struct {
	Mask     string           `json:"mask" yaml:"mask"`
	Entities []EntityID       `json:"entities" yaml:"entities"`
	Columns  map[string][]any `json:"columns" yaml:"columns"`
}

// Snapshot captures the world. Empty archetypes are omitted.
func (w *World) Snapshot() (*Snapshot, error) {
	if w.locked {
		return nil, LockedWorldError{}
	}
	reg := w.registry
	snap := &Snapshot{
		Version:           SnapshotVersion,
		NextEntityIndex:   int(reg.nextIndex),
		EntityGenerations: make([]int, len(reg.generations)),
		FreeEntityIDs:     append([]EntityID(nil), reg.free.Items()...),
		Tags:              make(map[string]EntityID, len(w.tags)),
		Groups:            make(map[string][]EntityID, len(w.groups)),
	}
	for i, g := range reg.generations {
		snap.EntityGenerations[i] = int(g)
	}

	for _, arch := range w.store.all() {
		if arch.Len() == 0 {
			continue
		}
		as := ArchetypeSnapshot{
			Mask:     formatMask(arch.mask),
			Entities: append([]EntityID(nil), arch.Entities()...),
			Columns:  make(map[string][]any, len(arch.components)),
		}
		for _, cid := range arch.components {
			data, err := w.serializeColumn(arch, cid)
			if err != nil {
				return nil, err
			}
			as.Columns[strconv.FormatUint(uint64(cid), 10)] = data
		}
		snap.Archetypes = append(snap.Archetypes, as)
	}

	for name, e := range w.tags {
		if reg.isValid(e) {
			snap.Tags[name] = e
		}
	}
	for name, group := range w.groups {
		snap.Groups[name] = append([]EntityID(nil), group.Items()...)
	}
	return snap, nil
}

func (w *World) serializeColumn(arch *archetype, cid ComponentID) ([]any, error) {
	info := w.store.infos[cid]
	out := make([]any, arch.Len())
	for row := range out {
		data, err := info.serializer.Serialize(arch.Value(cid, row))
		if err != nil {
			if w.cfg.World.StrictSerialization {
				return nil, eris.Wrapf(SerializationError{Component: cid, Err: err}, "serialize %s", info.name)
			}
			w.log.Warn("component value not serializable, writing null",
				zap.String("component", info.name),
				zap.Stringer("entity", arch.Entity(row)),
				zap.Error(err),
			)
			data = nil
		}
		out[row] = data
	}
	return out, nil
}

type stagedArchetype struct {
	mask     Mask
	entities []EntityID
	rows     []map[ComponentID]any
}

// Restore replaces the world's entities with the snapshot's contents. The
// snapshot is fully decoded and checked before the world is touched.
// Component registrations must match the ones used to write it.
func (w *World) Restore(snap *Snapshot) error {
	if w.locked {
		return LockedWorldError{}
	}
	if snap.Version != SnapshotVersion {
		return SnapshotVersionError{Got: snap.Version, Want: SnapshotVersion}
	}
	gens := snap.EntityGenerations
	known := func(e EntityID) bool {
		idx := int(e.Index())
		return !e.IsZero() && idx < len(gens) && gens[idx] == int(e.Generation())
	}

	staged := make([]stagedArchetype, 0, len(snap.Archetypes))
	seen := make(map[EntityID]struct{})
	for _, as := range snap.Archetypes {
		st, err := w.stageArchetype(as, known, seen)
		if err != nil {
			return err
		}
		staged = append(staged, st)
	}
	live := make(map[uint32]struct{}, len(seen))
	for e := range seen {
		live[e.Index()] = struct{}{}
	}
	if err := checkRestore(snap.NextEntityIndex, gens, snap.FreeEntityIDs, live); err != nil {
		return eris.Wrap(err, "restore entity registry")
	}

	if err := w.store.reset(); err != nil {
		return eris.Wrap(err, "reset component store")
	}
	w.registry.restore(snap.NextEntityIndex, gens, snap.FreeEntityIDs)
	w.relations.reset()
	w.cache.reset()
	w.opQueue.clear()
	clear(w.tags)
	clear(w.groups)

	for _, st := range staged {
		for i, e := range st.entities {
			if err := w.store.insert(e, st.mask, st.rows[i]); err != nil {
				return eris.Wrapf(err, "restore entity %v", e)
			}
		}
	}
	for name, e := range snap.Tags {
		if w.registry.isValid(e) {
			w.tags[name] = e
		}
	}
	for name, members := range snap.Groups {
		for _, e := range members {
			if w.registry.isValid(e) {
				_ = w.AddToGroup(name, e)
			}
		}
	}
	w.relations.rebuild()
	w.log.Info("snapshot restored",
		zap.Int("entities", w.Len()),
		zap.Int("archetypes", len(staged)),
	)
	return nil
}

func (w *World) stageArchetype(as ArchetypeSnapshot, known func(EntityID) bool, seen map[EntityID]struct{}) (stagedArchetype, error) {
	m, err := parseMask(as.Mask)
	if err != nil {
		return stagedArchetype{}, eris.Wrap(err, "restore archetype")
	}
	if err := w.store.checkMask(m); err != nil {
		return stagedArchetype{}, eris.Wrapf(err, "restore archetype {%s}", as.Mask)
	}
	st := stagedArchetype{
		mask:     m,
		entities: as.Entities,
		rows:     make([]map[ComponentID]any, len(as.Entities)),
	}
	for i, e := range as.Entities {
		if !known(e) {
			return stagedArchetype{}, eris.Errorf("entity %v in archetype {%s} does not match its generation", e, as.Mask)
		}
		if _, dup := seen[e]; dup {
			return stagedArchetype{}, eris.Errorf("entity %v appears more than once", e)
		}
		seen[e] = struct{}{}
		st.rows[i] = make(map[ComponentID]any, len(as.Columns))
	}
	for key, data := range as.Columns {
		v, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return stagedArchetype{}, eris.Wrapf(err, "restore archetype {%s}: column key %q", as.Mask, key)
		}
		cid := ComponentID(v)
		if !MaskHas(m, cid) {
			return stagedArchetype{}, eris.Errorf("archetype {%s} has a column for component %d outside its mask", as.Mask, cid)
		}
		if len(data) != len(as.Entities) {
			return stagedArchetype{}, eris.Errorf("archetype {%s} column %d has %d values for %d entities", as.Mask, cid, len(data), len(as.Entities))
		}
		info := w.store.infos[cid]
		for row, raw := range data {
			value, err := info.serializer.Deserialize(raw)
			if err != nil {
				return stagedArchetype{}, eris.Wrapf(SerializationError{Component: cid, Err: err}, "deserialize %s", info.name)
			}
			if !info.column.Accepts(value) {
				return stagedArchetype{}, eris.Wrapf(ComponentTypeError{Component: cid, Value: value}, "deserialize %s", info.name)
			}
			st.rows[row][cid] = value
		}
	}
	return st, nil
}

// Save writes a snapshot using the configured codec.
func (w *World) Save(out io.Writer) error {
	snap, err := w.Snapshot()
	if err != nil {
		return err
	}
	if err := EncodeSnapshot(out, snap, w.cfg.Snapshot); err != nil {
		return err
	}
	w.log.Info("snapshot saved",
		zap.String("format", w.cfg.Snapshot.Format),
		zap.Int("entities", w.Len()),
	)
	return nil
}

// Load reads a snapshot with the configured codec and restores it.
func (w *World) Load(in io.Reader) error {
	snap, err := DecodeSnapshot(in, w.cfg.Snapshot)
	if err != nil {
		return err
	}
	return w.Restore(snap)
}

func EncodeSnapshot(out io.Writer, snap *Snapshot, cfg SnapshotConfig) error {
	switch cfg.Format {
	case SnapshotFormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(max(cfg.Indent, 2))
		if err := enc.Encode(snap); err != nil {
			return eris.Wrap(err, "encode yaml snapshot")
		}
		return eris.Wrap(enc.Close(), "encode yaml snapshot")
	case SnapshotFormatJSON, "":
		enc := json.NewEncoder(out)
		if cfg.Indent > 0 {
			enc.SetIndent("", strings.Repeat(" ", cfg.Indent))
		}
		return eris.Wrap(enc.Encode(snap), "encode json snapshot")
	}
	return eris.Errorf("unknown snapshot format %q", cfg.Format)
}

func DecodeSnapshot(in io.Reader, cfg SnapshotConfig) (*Snapshot, error) {
	snap := &Snapshot{}
	switch cfg.Format {
	case SnapshotFormatYAML:
		if err := yaml.NewDecoder(in).Decode(snap); err != nil {
			return nil, eris.Wrap(err, "decode yaml snapshot")
		}
	case SnapshotFormatJSON, "":
		dec := json.NewDecoder(in)
		dec.UseNumber()
		if err := dec.Decode(snap); err != nil {
			return nil, eris.Wrap(err, "decode json snapshot")
		}
	default:
		return nil, eris.Errorf("unknown snapshot format %q", cfg.Format)
	}
	return snap, nil
}
