package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/iancoleman/orderedmap"
)

// Snapshot renders the resolved catalog as one canonical JSON document keyed
// by block ID. Entries and their extra blocks appear in authored order, so
// successive snapshots of the same sources are byte-identical and review
// diffs stay minimal.
func (r *Resolver) Snapshot() ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc := orderedmap.New()
	for _, id := range r.order {
		entry, ok := r.entries[id]
		if !ok {
			continue
		}
		doc.Set(id, snapshotEntry(entry))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("catalog: marshal snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

func snapshotEntry(entry Entry) *orderedmap.OrderedMap {
	out := orderedmap.New()
	out.Set("name", entry.Name)
	out.Set("hardness", entry.Hardness)
	if entry.Immutable {
		out.Set("immutable", true)
	}
	if entry.Solid {
		out.Set("solid", true)
	}
	if len(entry.Drops) > 0 {
		out.Set("drops", entry.Drops)
	}
	if entry.Blocks != nil {
		for _, key := range entry.Blocks.Keys() {
			value, _ := entry.Blocks.Get(key)
			out.Set(key, value)
		}
	}
	return out
}
