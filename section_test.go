package tsdemux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSubtableID(n uint8) SubtableID {
	return patSubtableID(TableIDPAT, 1, n)
}

func TestSectionAppendClipsToDeclaredSize(t *testing.T) {
	s := newSection(testSubtableID(0), 0, 5)
	n := s.append([]byte{1, 2, 3, 4, 5, 6, 7})
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, s.Bytes())
	assert.True(t, s.done())
}

func TestSectionAppendAcrossCalls(t *testing.T) {
	s := newSection(testSubtableID(0), 0, 4)
	s.append([]byte{1, 2})
	assert.False(t, s.done())
	s.append([]byte{3, 4})
	assert.True(t, s.done())
	assert.Equal(t, []byte{1, 2, 3, 4}, s.Bytes())
}

func TestSectionResetDiscardsBuffer(t *testing.T) {
	s := newSection(testSubtableID(0), 0, 4)
	s.append([]byte{1, 2, 3, 4})
	require.True(t, s.done())

	s.reset(2)
	assert.False(t, s.done())
	assert.Empty(t, s.Bytes())
	s.append([]byte{9, 9})
	assert.True(t, s.done())
	assert.Equal(t, []byte{9, 9}, s.Bytes())
}

func TestTableCompleteRequiresEverySection(t *testing.T) {
	id := testSubtableID(0)
	tbl := newTable(id, 0x10, 1)

	s0 := tbl.section(0, 2)
	s0.append([]byte{1, 2})
	assert.False(t, tbl.complete())

	s1 := tbl.section(1, 2)
	s1.append([]byte{3, 4})
	assert.True(t, tbl.complete())
}

func TestTableSectionsOrderedAscending(t *testing.T) {
	id := testSubtableID(0)
	tbl := newTable(id, 0x10, 2)

	for _, n := range []uint8{2, 0, 1} {
		s := tbl.section(n, 1)
		s.append([]byte{n})
	}

	got := tbl.Sections()
	require.Len(t, got, 3)
	assert.Equal(t, uint8(0), got[0].Number())
	assert.Equal(t, uint8(1), got[1].Number())
	assert.Equal(t, uint8(2), got[2].Number())
}

func TestTableSectionRefetchResets(t *testing.T) {
	id := testSubtableID(0)
	tbl := newTable(id, 0x10, 0)

	s := tbl.section(0, 4)
	s.append([]byte{1, 2, 3, 4})
	require.True(t, tbl.complete())

	// A fresh PUSI for the same section number with a new declared size
	// resets rather than appending (spec Open Question 1).
	s2 := tbl.section(0, 2)
	assert.False(t, s2.done())
	s2.append([]byte{9, 9})
	assert.True(t, tbl.complete())
	assert.Equal(t, []byte{9, 9}, s2.Bytes())
}
