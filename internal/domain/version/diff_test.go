package version

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareClassification(t *testing.T) {
	start := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)

	old := map[string]interface{}{
		"title":       "Standup",
		"description": "Daily sync",
		"location":    nil,
		"start_time":  start,
	}
	new := map[string]interface{}{
		"title":       "Planning",
		"description": nil,
		"location":    "Room 4",
		"start_time":  start,
	}

	diff := Compare(old, new)

	require.Len(t, diff.Fields, 3)
	assert.Equal(t, 3, diff.Summary.TotalChanges)
	assert.Equal(t, 1, diff.Summary.AddedFields)
	assert.Equal(t, 1, diff.Summary.RemovedFields)
	assert.Equal(t, 1, diff.Summary.ModifiedFields)

	assert.Equal(t, ChangeModified, diff.Fields["title"].Type)
	assert.Equal(t, "Standup", diff.Fields["title"].Old)
	assert.Equal(t, "Planning", diff.Fields["title"].New)

	assert.Equal(t, ChangeRemoved, diff.Fields["description"].Type)
	assert.Equal(t, ChangeAdded, diff.Fields["location"].Type)

	_, unchanged := diff.Fields["start_time"]
	assert.False(t, unchanged, "equal fields must be omitted")
}

func TestCompareEqualSnapshots(t *testing.T) {
	start := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	snap := map[string]interface{}{
		"title":      "Standup",
		"start_time": start,
	}

	diff := Compare(snap, snap)
	assert.Empty(t, diff.Fields)
	assert.Equal(t, 0, diff.Summary.TotalChanges)
}

func TestCompareSymmetry(t *testing.T) {
	// diff(A,B) and diff(B,A) touch the same fields with old/new and
	// added/removed mirrored.
	a := map[string]interface{}{
		"title":    "Standup",
		"location": "Room 1",
	}
	b := map[string]interface{}{
		"title":       "Planning",
		"description": "Quarterly",
	}

	forward := Compare(a, b)
	backward := Compare(b, a)

	require.Equal(t, len(forward.Fields), len(backward.Fields))
	for field, fc := range forward.Fields {
		bc, ok := backward.Fields[field]
		require.True(t, ok, "field %s missing from reverse diff", field)
		assert.Equal(t, fc.Old, bc.New)
		assert.Equal(t, fc.New, bc.Old)
		switch fc.Type {
		case ChangeAdded:
			assert.Equal(t, ChangeRemoved, bc.Type)
		case ChangeRemoved:
			assert.Equal(t, ChangeAdded, bc.Type)
		default:
			assert.Equal(t, ChangeModified, bc.Type)
		}
	}
}

func TestCompareTimeShift(t *testing.T) {
	base := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		old             time.Time
		new             time.Time
		expectedSeconds int64
		movedLater      bool
	}{
		{"moved later", base, base.Add(90 * time.Minute), 5400, true},
		{"moved earlier", base, base.Add(-30 * time.Minute), -1800, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := Compare(
				map[string]interface{}{"start_time": tt.old},
				map[string]interface{}{"start_time": tt.new},
			)
			change, ok := diff.Fields["start_time"]
			require.True(t, ok)
			require.NotNil(t, change.TimeShift)
			assert.Equal(t, tt.expectedSeconds, change.TimeShift.ElapsedSeconds)
			assert.Equal(t, tt.movedLater, change.TimeShift.MovedLater)
		})
	}
}

func TestCompareTimeEqualityIgnoresZone(t *testing.T) {
	utc := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	shifted := utc.In(time.FixedZone("CEST", 2*3600))

	diff := Compare(
		map[string]interface{}{"start_time": utc},
		map[string]interface{}{"start_time": shifted},
	)
	assert.Empty(t, diff.Fields, "same instant in different zones is not a change")
}

func TestCompareKeyDiff(t *testing.T) {
	old := map[string]interface{}{
		"recurrence_pattern": map[string]interface{}{
			"interval": 1,
			"days":     "mon,wed",
			"until":    "2026-06-01",
		},
	}
	new := map[string]interface{}{
		"recurrence_pattern": map[string]interface{}{
			"interval": 2,
			"days":     "mon,wed",
			"count":    10,
		},
	}

	diff := Compare(old, new)
	change, ok := diff.Fields["recurrence_pattern"]
	require.True(t, ok)
	require.NotNil(t, change.KeyDiff)

	assert.Equal(t, []string{"count"}, change.KeyDiff.Added)
	assert.Equal(t, []string{"until"}, change.KeyDiff.Removed)
	assert.Equal(t, []string{"days"}, change.KeyDiff.Unchanged)
	require.Contains(t, change.KeyDiff.Modified, "interval")
	assert.Equal(t, 1, change.KeyDiff.Modified["interval"].Old)
	assert.Equal(t, 2, change.KeyDiff.Modified["interval"].New)
}

func TestCompareEmptyMapEqualsAbsent(t *testing.T) {
	diff := Compare(
		map[string]interface{}{"recurrence_pattern": map[string]interface{}{}},
		map[string]interface{}{"recurrence_pattern": nil},
	)
	assert.Empty(t, diff.Fields)
}

func TestRenderText(t *testing.T) {
	start := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	old := map[string]interface{}{
		"title":      "Standup",
		"start_time": start,
		"location":   "Room 1",
	}
	new := map[string]interface{}{
		"title":      "Planning",
		"start_time": start.Add(time.Hour),
	}

	diff := Compare(old, new)
	text := diff.RenderText()
	lines := strings.Split(text, "\n")

	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, "--- old", lines[0])
	assert.Equal(t, "+++ new", lines[1])

	assert.Contains(t, text, "-title: Standup")
	assert.Contains(t, text, "+title: Planning")
	assert.Contains(t, text, "-start_time: 2026-05-02T09:00:00Z")
	assert.Contains(t, text, "+start_time: 2026-05-02T10:00:00Z")
	assert.Contains(t, text, "-location: Room 1")
	assert.NotContains(t, text, "+location", "removed fields have no new line")

	// Fields appear in sorted order after the header, with a field's old and
	// new lines adjacent.
	var fieldsSeen []string
	for _, l := range lines[2:] {
		name := strings.SplitN(strings.TrimLeft(l, "-+"), ":", 2)[0]
		if len(fieldsSeen) == 0 || fieldsSeen[len(fieldsSeen)-1] != name {
			fieldsSeen = append(fieldsSeen, name)
		}
	}
	assert.IsNonDecreasing(t, fieldsSeen)
}

func TestRenderTextNoChanges(t *testing.T) {
	diff := Compare(map[string]interface{}{"title": "A"}, map[string]interface{}{"title": "A"})
	assert.Equal(t, "--- old\n+++ new", diff.RenderText())
}
