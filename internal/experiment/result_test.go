package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeLastKeyWins(t *testing.T) {
	merged := Merge(
		Fragment{"a": 1},
		Fragment{"a": 2, "b": 1},
		Fragment{"a": 3},
	)

	assert.Equal(t, Fragment{"a": 3, "b": 1}, merged)
}

func TestAccumulatorMergedWithTriggerLast(t *testing.T) {
	var acc Accumulator
	acc.Append(Fragment{"a": 1})
	acc.Append(Fragment{"a": 2, "b": 1})

	merged := acc.MergedWith(Fragment{"a": 3})

	assert.Equal(t, Fragment{"a": 3, "b": 1}, merged)
	// MergedWith must not consume the buffer.
	assert.Equal(t, 2, acc.Len())
}

func TestAccumulatorClear(t *testing.T) {
	var acc Accumulator
	acc.Append(Fragment{"x": true})
	acc.Clear()

	assert.Equal(t, 0, acc.Len())
	assert.Equal(t, Fragment{"y": 1}, acc.MergedWith(Fragment{"y": 1}))
}

func TestMergedWithNilTrigger(t *testing.T) {
	var acc Accumulator
	acc.Append(Fragment{"a": 1})

	assert.Equal(t, Fragment{"a": 1}, acc.MergedWith(nil))
}

func TestSectionRef(t *testing.T) {
	id, ok := sectionRef(Fragment{"section": 7})
	assert.True(t, ok)
	assert.Equal(t, 7, id)

	// JSON-decoded payloads carry numbers as float64.
	id, ok = sectionRef(Fragment{"section": float64(12)})
	assert.True(t, ok)
	assert.Equal(t, 12, id)

	id, ok = sectionRef(Fragment{"section": map[string]any{"id": float64(3)}})
	assert.True(t, ok)
	assert.Equal(t, 3, id)

	id, ok = sectionRef(Fragment{"section": Section{ID: 9}})
	assert.True(t, ok)
	assert.Equal(t, 9, id)

	_, ok = sectionRef(Fragment{"answer": "yes"})
	assert.False(t, ok)
}
