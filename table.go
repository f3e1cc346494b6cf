package tsdemux

import "golang.org/x/exp/slices"

// Table is a collection of sections sharing a SubtableID, complete
// when sections exist for every number 0..=LastSectionNumber and each
// one is done (spec §3, §4.4). Sections are stored by value-holding
// pointer in a map keyed by section_number, per spec §9's advice to
// avoid a shared mutable "current section" reference: the reassembler
// instead tracks the "current" section as a (SubtableID, number) index
// recomputed on every PUSI.
type Table struct {
	ID                SubtableID
	PID               uint16
	LastSectionNumber uint8
	sections          map[uint8]*Section
	orderedCache      []uint8
	orderDirty        bool

	// completed is set once this Table has fired a TableEvent. Because
	// SubtableID (the tables map key) embeds the version, a Table only
	// ever represents one version's worth of content, so once set this
	// flag rules out any further completion for the same instance
	// (spec §8 Idempotence).
	completed bool
}

func newTable(id SubtableID, pid uint16, lastSectionNumber uint8) *Table {
	return &Table{
		ID:                id,
		PID:               pid,
		LastSectionNumber: lastSectionNumber,
		sections:          make(map[uint8]*Section),
	}
}

// section returns the section for number, creating it with the given
// declared size if it doesn't exist yet, and resetting it (discarding
// whatever was buffered) if it does — see Section.reset and spec §9's
// first Open Question.
func (t *Table) section(number uint8, declared int) *Section {
	if s, ok := t.sections[number]; ok {
		s.reset(declared)
		return s
	}
	s := newSection(t.ID, number, declared)
	t.sections[number] = s
	t.orderDirty = true
	return s
}

// complete reports whether every section number 0..=LastSectionNumber
// is present and done (spec §4.4).
func (t *Table) complete() bool {
	for n := uint8(0); ; n++ {
		s, ok := t.sections[n]
		if !ok || !s.done() {
			return false
		}
		if n == t.LastSectionNumber {
			return true
		}
	}
}

// Sections returns the table's sections ordered ascending by
// section_number (spec §3 invariant: "stored sorted ascending").
func (t *Table) Sections() []*Section {
	if t.orderDirty || len(t.orderedCache) != len(t.sections) {
		t.orderedCache = t.orderedCache[:0]
		for n := range t.sections {
			t.orderedCache = append(t.orderedCache, n)
		}
		slices.Sort(t.orderedCache)
		t.orderDirty = false
	}

	out := make([]*Section, len(t.orderedCache))
	for i, n := range t.orderedCache {
		out[i] = t.sections[n]
	}
	return out
}
