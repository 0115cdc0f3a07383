// Package snapshot defines the whole-state persistence format for the
// registry and the blob stores it is written to.
//
// The on-disk document is a JSON object whose entity keys each hold an
// array of [id, record] pairs (a serialized map). Pair order is stable:
// map-backed collections are sorted by ID, the activity log keeps its
// insertion order.
package snapshot

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/yukifiles/yukifiles/internal/models"
)

// Pair is one [id, record] element of a serialized map.
type Pair[T any] struct {
	ID     string
	Record *T
}

func (p Pair[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.ID, p.Record})
}

func (p *Pair[T]) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("snapshot pair must have exactly 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.ID); err != nil {
		return fmt.Errorf("snapshot pair id: %w", err)
	}
	record := new(T)
	if err := json.Unmarshal(raw[1], record); err != nil {
		return fmt.Errorf("snapshot pair record: %w", err)
	}
	p.Record = record
	return nil
}

// Data is a complete serialized registry. Settings is an extension key;
// decoders tolerate its absence.
type Data struct {
	Users       []Pair[models.User]          `json:"users"`
	Files       []Pair[models.FileNode]      `json:"files"`
	Folders     []Pair[models.FileNode]      `json:"folders"`
	ShareLinks  []Pair[models.ShareLink]     `json:"shareLinks"`
	UserActions []Pair[models.ActivityEntry] `json:"userActions"`
	Settings    []Pair[models.AppSetting]    `json:"settings,omitempty"`
}

// Encode renders the snapshot document.
func Encode(data *Data) ([]byte, error) {
	out, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return out, nil
}

// Decode parses a snapshot document.
func Decode(raw []byte) (*Data, error) {
	data := &Data{}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return data, nil
}

// PairsFromMap serializes a map sorted by ID so encoded output is stable.
func PairsFromMap[T any](records map[string]*T) []Pair[T] {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	pairs := make([]Pair[T], 0, len(ids))
	for _, id := range ids {
		pairs = append(pairs, Pair[T]{ID: id, Record: records[id]})
	}
	return pairs
}

// MapFromPairs rebuilds a map; later duplicates win, matching map semantics.
func MapFromPairs[T any](pairs []Pair[T]) map[string]*T {
	out := make(map[string]*T, len(pairs))
	for _, pair := range pairs {
		out[pair.ID] = pair.Record
	}
	return out
}
