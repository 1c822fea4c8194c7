package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/iancoleman/orderedmap"
)

type source interface {
	Load() ([]byte, error)
	Path() string
}

type fileSource struct {
	path string
}

func (f fileSource) Load() ([]byte, error) {
	return os.ReadFile(f.path)
}

func (f fileSource) Path() string {
	return f.path
}

// Entry captures the resolved catalog data for a single designer-authored
// block definition. Drops are normalized (quantities defaulted) and any
// additional JSON blocks that were present on disk are kept in authored order.
type Entry struct {
	ID        string
	Name      string
	Hardness  float64
	Immutable bool
	Solid     bool
	Drops     []Drop
	Blocks    *orderedmap.OrderedMap
}

// Drop describes one item stack spawned when a block is broken.
type Drop struct {
	Item     string `json:"item" jsonschema:"title=Item ID,description=Identifier of the item stack spawned for this drop.,pattern=^[a-z0-9-]+$,minLength=1,required"`
	Quantity int    `json:"quantity,omitempty" jsonschema:"title=Quantity,description=Stack size spawned per drop. Defaults to one.,minimum=1"`
}

// EntryDocument represents a single catalog entry as it appears on disk. The
// struct is exported so tooling (e.g. schema generators) can reflect over the
// configuration contract shared with designers.
type EntryDocument struct {
	ID        string                 `json:"id" jsonschema:"title=Block ID,description=Designer-facing identifier that doubles as the runtime block type.,pattern=^[a-z0-9-]+$,minLength=1,required"`
	Name      string                 `json:"name" jsonschema:"title=Display Name,description=Human-readable name surfaced in tooling and logs.,minLength=1,required"`
	Hardness  float64                `json:"hardness" jsonschema:"title=Hardness,description=Relative mining cost. Zero breaks instantly."`
	Immutable bool                   `json:"immutable,omitempty" jsonschema:"title=Immutable,description=Immutable blocks reject writes and force the surrounding transaction to roll back."`
	Solid     bool                   `json:"solid,omitempty" jsonschema:"title=Solid,description=Solid blocks occupy their cell and block movement."`
	Drops     []Drop                 `json:"drops,omitempty" jsonschema:"title=Drops,description=Item stacks spawned when the block is broken."`
	Blocks    *orderedmap.OrderedMap `json:"-" jsonschema:"-"`
}

func (e Entry) clone() Entry {
	clone := e
	clone.Drops = append([]Drop(nil), e.Drops...)
	clone.Blocks = cloneBlocks(e.Blocks)
	return clone
}

// Flag reads a boolean flag from one of the entry's free-form blocks, e.g.
// Flag("physics", "falls"). Missing blocks, missing keys, and non-boolean
// values all read as false.
func (e Entry) Flag(block, key string) bool {
	if e.Blocks == nil {
		return false
	}
	raw, ok := e.Blocks.Get(block)
	if !ok {
		return false
	}
	switch nested := raw.(type) {
	case map[string]interface{}:
		flag, _ := nested[key].(bool)
		return flag
	case *orderedmap.OrderedMap:
		value, ok := nested.Get(key)
		if !ok {
			return false
		}
		flag, _ := value.(bool)
		return flag
	case orderedmap.OrderedMap:
		value, ok := nested.Get(key)
		if !ok {
			return false
		}
		flag, _ := value.(bool)
		return flag
	}
	return false
}

// cloneBlocks deep-copies an ordered block map by round-tripping it through
// JSON. The values always originate from json.Unmarshal so the round trip
// cannot fail on real catalog data.
func cloneBlocks(src *orderedmap.OrderedMap) *orderedmap.OrderedMap {
	if src == nil || len(src.Keys()) == 0 {
		return nil
	}
	data, err := json.Marshal(src)
	if err != nil {
		return nil
	}
	dst := orderedmap.New()
	if err := json.Unmarshal(data, dst); err != nil {
		return nil
	}
	return dst
}

// Resolver merges one or more catalog sources into a stable lookup table.
// Call Reload to pick up on-disk changes (used for dev hot reload).
type Resolver struct {
	mu      sync.RWMutex
	sources []source
	entries map[string]Entry
	order   []string
}

// DefaultPaths returns the canonical catalog locations relative to the module
// root. Callers may pass these to Load.
func DefaultPaths() []string {
	candidates := []string{
		filepath.Join("config", "blocks", "definitions.json"),
		filepath.Join("..", "config", "blocks", "definitions.json"),
	}

	paths := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		cleaned := filepath.Clean(candidate)
		if _, duplicate := seen[cleaned]; duplicate {
			continue
		}
		seen[cleaned] = struct{}{}
		paths = append(paths, cleaned)
	}

	if len(paths) == 0 {
		return []string{filepath.Join("config", "blocks", "definitions.json")}
	}
	return paths
}

// Load constructs a Resolver backed by the provided catalog file paths.
// Missing files are skipped so overlay paths can stay optional.
func Load(paths ...string) (*Resolver, error) {
	sources := make([]source, 0, len(paths))
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		sources = append(sources, fileSource{path: trimmed})
	}
	return NewResolver(sources...)
}

// NewResolver constructs a Resolver from arbitrary sources. Tests can supply
// in-memory sources while production code uses fileSource.
func NewResolver(sources ...source) (*Resolver, error) {
	r := &Resolver{
		sources: append([]source(nil), sources...),
		entries: make(map[string]Entry),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-parses all catalog sources. Later sources override earlier ones to
// support local overlays during development; an override keeps the position
// the block was first authored at so snapshots diff cleanly.
func (r *Resolver) Reload() error {
	if r == nil {
		return nil
	}
	entries := make(map[string]Entry)
	order := make([]string, 0, 8)
	for _, src := range r.sources {
		data, err := src.Load()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("catalog: failed loading %s: %w", src.Path(), err)
		}
		documents, err := decodeEntries(data)
		if err != nil {
			return fmt.Errorf("catalog: failed parsing %s: %w", src.Path(), err)
		}
		seen := make(map[string]struct{}, len(documents))
		for _, doc := range documents {
			id := strings.TrimSpace(doc.ID)
			if id == "" {
				return fmt.Errorf("catalog: entry missing id in %s", src.Path())
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("catalog: duplicate id %q in %s", id, src.Path())
			}
			seen[id] = struct{}{}

			entry, err := resolveEntry(id, doc)
			if err != nil {
				return fmt.Errorf("catalog: %s: %w", src.Path(), err)
			}
			if _, exists := entries[id]; !exists {
				order = append(order, id)
			}
			entries[id] = entry
		}
	}

	r.mu.Lock()
	r.entries = entries
	r.order = order
	r.mu.Unlock()
	return nil
}

func resolveEntry(id string, doc EntryDocument) (Entry, error) {
	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return Entry{}, fmt.Errorf("entry %q missing name", id)
	}
	if doc.Hardness < 0 {
		return Entry{}, fmt.Errorf("entry %q has negative hardness %v", id, doc.Hardness)
	}

	drops := make([]Drop, 0, len(doc.Drops))
	for i, drop := range doc.Drops {
		item := strings.TrimSpace(drop.Item)
		if item == "" {
			return Entry{}, fmt.Errorf("entry %q drop %d missing item", id, i)
		}
		quantity := drop.Quantity
		if quantity == 0 {
			quantity = 1
		}
		if quantity < 0 {
			return Entry{}, fmt.Errorf("entry %q drop %q has negative quantity %d", id, item, drop.Quantity)
		}
		drops = append(drops, Drop{Item: item, Quantity: quantity})
	}
	if doc.Immutable && len(drops) > 0 {
		return Entry{}, fmt.Errorf("entry %q is immutable and must not declare drops", id)
	}

	entry := Entry{
		ID:        id,
		Name:      name,
		Hardness:  doc.Hardness,
		Immutable: doc.Immutable,
		Solid:     doc.Solid,
		Blocks:    doc.Blocks,
	}
	if len(drops) > 0 {
		entry.Drops = drops
	}
	return entry, nil
}

// Resolve returns the catalog entry for the provided block ID.
func (r *Resolver) Resolve(id string) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	return entry.clone(), true
}

// Definitions returns a cloned snapshot of the catalog entries in authored
// order.
func (r *Resolver) Definitions() []Entry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		entry, ok := r.entries[id]
		if !ok {
			continue
		}
		out = append(out, entry.clone())
	}
	return out
}

// Palette returns the block IDs in authored order. World generators use it as
// the canonical type list.
func (r *Resolver) Palette() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (e *EntryDocument) UnmarshalJSON(data []byte) error {
	type rawEntry EntryDocument
	var alias rawEntry
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	ordered := orderedmap.New()
	if err := json.Unmarshal(data, ordered); err != nil {
		return err
	}
	blocks := orderedmap.New()
	for _, key := range ordered.Keys() {
		switch key {
		case "id", "name", "hardness", "immutable", "solid", "drops":
			continue
		}
		value, _ := ordered.Get(key)
		blocks.Set(key, value)
	}
	if len(blocks.Keys()) > 0 {
		alias.Blocks = blocks
	}
	*e = EntryDocument(alias)
	return nil
}

func decodeEntries(data []byte) ([]EntryDocument, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var entries []EntryDocument
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	case '{':
		var object map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &object); err != nil {
			return nil, err
		}
		// Authored order is part of the catalog contract, so walk the keys
		// through an ordered decode instead of sorting them.
		ordered := orderedmap.New()
		if err := json.Unmarshal(trimmed, ordered); err != nil {
			return nil, err
		}
		entries := make([]EntryDocument, 0, len(object))
		for _, id := range ordered.Keys() {
			var entry EntryDocument
			if err := json.Unmarshal(object[id], &entry); err != nil {
				return nil, fmt.Errorf("entry %q: %w", id, err)
			}
			if entry.ID == "" {
				entry.ID = id
			} else if entry.ID != id {
				return nil, fmt.Errorf("entry id %q does not match key %q", entry.ID, id)
			}
			entries = append(entries, entry)
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("unexpected json token %q", string(trimmed[:1]))
	}
}
