package experiment

// Fragment is one piece of evidence about a round: a response, a timing
// measurement, a type discriminant. The shape is defined by the view that
// produced it, not by the player core.
type Fragment map[string]any

// Merge shallow-merges fragments in order. Later fragments win key
// collisions, so the triggering fragment of a flush must come last.
func Merge(fragments ...Fragment) Fragment {
	out := Fragment{}
	for _, f := range fragments {
		for k, v := range f {
			out[k] = v
		}
	}
	return out
}

// Accumulator buffers result fragments produced while a round is being
// resolved. It is a plain value type: Append and Drain are the only
// operations, and the flush decision (continue locally vs. submit) belongs
// to the runner that owns the round queue.
type Accumulator struct {
	buffer []Fragment
}

// Append adds a fragment to the buffer. Buffer order is submission order.
func (a *Accumulator) Append(f Fragment) {
	a.buffer = append(a.buffer, f)
}

// Len returns the number of buffered fragments.
func (a *Accumulator) Len() int {
	return len(a.buffer)
}

// MergedWith returns the shallow merge of the buffered fragments, in
// insertion order, with trigger applied last. The buffer is not modified.
func (a *Accumulator) MergedWith(trigger Fragment) Fragment {
	all := make([]Fragment, 0, len(a.buffer)+1)
	all = append(all, a.buffer...)
	if trigger != nil {
		all = append(all, trigger)
	}
	return Merge(all...)
}

// Clear drops all buffered fragments. Called unconditionally after a flush
// attempt, success or failure.
func (a *Accumulator) Clear() {
	a.buffer = nil
}

// sectionRef extracts a section identifier from a merged payload, if the
// payload names one. Views attach either a bare id or a section object.
func sectionRef(merged Fragment) (int, bool) {
	raw, ok := merged["section"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case Section:
		return v.ID, true
	case *Section:
		return v.ID, true
	case map[string]any:
		if id, ok := v["id"].(float64); ok {
			return int(id), true
		}
	}
	return 0, false
}
