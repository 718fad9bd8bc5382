package version

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// ChangeType classifies how a field differs between two snapshots.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// TimeShift reports how a datetime-valued field moved between snapshots.
// ElapsedSeconds is signed: positive means the second snapshot is later.
type TimeShift struct {
	ElapsedSeconds int64 `json:"elapsed_seconds"`
	MovedLater     bool  `json:"moved_later"`
}

// ValuePair holds the old and new value of a modified map key.
type ValuePair struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

// KeyDiff is the key-level breakdown for a structured (map-valued) field,
// notably the free-form recurrence pattern.
type KeyDiff struct {
	Added     []string             `json:"added_keys"`
	Removed   []string             `json:"removed_keys"`
	Modified  map[string]ValuePair `json:"modified_keys"`
	Unchanged []string             `json:"unchanged_keys"`
}

// FieldChange describes a single differing field.
type FieldChange struct {
	Type ChangeType  `json:"change_type"`
	Old  interface{} `json:"old_value"`
	New  interface{} `json:"new_value"`

	// Only set for datetime-valued fields.
	TimeShift *TimeShift `json:"time_shift,omitempty"`
	// Only set for map-valued fields.
	KeyDiff *KeyDiff `json:"key_changes,omitempty"`
}

// Summary counts the changed fields per change type.
type Summary struct {
	TotalChanges   int `json:"total_changes"`
	AddedFields    int `json:"added_fields"`
	RemovedFields  int `json:"removed_fields"`
	ModifiedFields int `json:"modified_fields"`
}

// Diff is the structured comparison of two snapshots. Equal fields are
// omitted.
type Diff struct {
	Summary Summary                `json:"summary"`
	Fields  map[string]FieldChange `json:"field_changes"`
}

// Compare computes the field-level difference between two flat field maps.
// Pure and deterministic: it reads nothing but its arguments.
func Compare(a, b map[string]interface{}) *Diff {
	diff := &Diff{Fields: make(map[string]FieldChange)}

	for _, field := range unionKeys(a, b) {
		oldVal := normalize(a[field])
		newVal := normalize(b[field])
		if valuesEqual(oldVal, newVal) {
			continue
		}

		change := FieldChange{Old: oldVal, New: newVal}
		switch {
		case oldVal == nil:
			change.Type = ChangeAdded
			diff.Summary.AddedFields++
		case newVal == nil:
			change.Type = ChangeRemoved
			diff.Summary.RemovedFields++
		default:
			change.Type = ChangeModified
			diff.Summary.ModifiedFields++
		}
		diff.Summary.TotalChanges++

		if oldT, okA := oldVal.(time.Time); okA {
			if newT, okB := newVal.(time.Time); okB {
				change.TimeShift = compareTimes(oldT, newT)
			}
		}
		oldMap, okA := oldVal.(map[string]interface{})
		newMap, okB := newVal.(map[string]interface{})
		if okA && okB {
			change.KeyDiff = compareMaps(oldMap, newMap)
		}

		diff.Fields[field] = change
	}

	return diff
}

// RenderText produces the line-oriented rendering of a diff (`-field: old`,
// `+field: new`, fields in sorted order). It is a projection of the same
// comparison Compare made, so the two outputs cannot disagree.
func (d *Diff) RenderText() string {
	lines := []string{"--- old", "+++ new"}

	fields := make([]string, 0, len(d.Fields))
	for field := range d.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		change := d.Fields[field]
		if change.Old != nil {
			lines = append(lines, fmt.Sprintf("-%s: %s", field, renderValue(change.Old)))
		}
		if change.New != nil {
			lines = append(lines, fmt.Sprintf("+%s: %s", field, renderValue(change.New)))
		}
	}

	return strings.Join(lines, "\n")
}

func compareTimes(old, new time.Time) *TimeShift {
	delta := new.Sub(old)
	return &TimeShift{
		ElapsedSeconds: int64(delta.Seconds()),
		MovedLater:     delta > 0,
	}
}

func compareMaps(old, new map[string]interface{}) *KeyDiff {
	kd := &KeyDiff{
		Added:     []string{},
		Removed:   []string{},
		Modified:  make(map[string]ValuePair),
		Unchanged: []string{},
	}

	for _, key := range unionKeys(old, new) {
		oldVal, inOld := old[key]
		newVal, inNew := new[key]
		switch {
		case !inOld:
			kd.Added = append(kd.Added, key)
		case !inNew:
			kd.Removed = append(kd.Removed, key)
		case valuesEqual(normalize(oldVal), normalize(newVal)):
			kd.Unchanged = append(kd.Unchanged, key)
		default:
			kd.Modified[key] = ValuePair{Old: oldVal, New: newVal}
		}
	}

	return kd
}

// unionKeys returns the sorted union of the key sets, which keeps every
// traversal deterministic.
func unionKeys(a, b map[string]interface{}) []string {
	seen := make(map[string]bool, len(a)+len(b))
	for k := range a {
		seen[k] = true
	}
	for k := range b {
		seen[k] = true
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// normalize collapses typed nils and empty maps to nil so both-absent fields
// compare equal.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		if len(t) == 0 {
			return nil
		}
		return t
	default:
		return v
	}
}

func valuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func renderValue(v interface{}) string {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%v", v)
}
