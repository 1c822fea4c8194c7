package capture

import "testing"

func TestReverseViewOrder(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "s1")
	buf.Add(gridPos{1, 0, 0}, "s2")
	buf.Add(gridPos{0, 0, 0}, "s3")

	view := buf.Reverse()
	if got := view.Len(); got != 2 {
		t.Fatalf("expected reverse length 2, got %d", got)
	}
	if got := view.At(0); got != "s2" {
		t.Fatalf("expected %q at reverse index 0, got %q", "s2", got)
	}
	if got := view.At(1); got != "s3" {
		t.Fatalf("expected %q at reverse index 1, got %q", "s3", got)
	}
}

func TestReverseViewLocationAt(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "a")
	buf.Add(gridPos{1, 0, 0}, "b")

	view := buf.Reverse()
	if got := view.LocationAt(0); got != (gridPos{1, 0, 0}) {
		t.Fatalf("expected location {1 0 0} at reverse index 0, got %v", got)
	}
	if got := view.LocationAt(1); got != (gridPos{0, 0, 0}) {
		t.Fatalf("expected location {0 0 0} at reverse index 1, got %v", got)
	}
}

func TestReverseViewTracksLiveBuffer(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	view := buf.Reverse()
	if got := view.Len(); got != 0 {
		t.Fatalf("expected empty view, got length %d", got)
	}

	buf.Add(gridPos{0, 0, 0}, "a")
	buf.Add(gridPos{1, 0, 0}, "b")
	if got := view.Len(); got != 2 {
		t.Fatalf("expected view to follow buffer growth, got length %d", got)
	}
	if got := view.At(0); got != "b" {
		t.Fatalf("expected %q at reverse index 0, got %q", "b", got)
	}

	buf.Add(gridPos{0, 0, 0}, "a2")
	if got := view.At(1); got != "a2" {
		t.Fatalf("expected promotion to show through the view, got %q", got)
	}
}

func TestReverseViewAtBounds(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "a")
	view := buf.Reverse()

	mustPanic(t, ErrOutOfRange, func() { view.At(1) })
	mustPanic(t, ErrOutOfRange, func() { view.At(-1) })
	mustPanic(t, ErrOutOfRange, func() { view.LocationAt(1) })
}

func TestReverseViewRemoveDropsWholeLocation(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "a1")
	buf.Add(gridPos{1, 0, 0}, "b1")
	buf.Add(gridPos{0, 0, 0}, "a2")

	view := buf.Reverse()
	removed := view.Remove(1)
	if removed != "a2" {
		t.Fatalf("expected effective snapshot %q from removal, got %q", "a2", removed)
	}
	if got := view.Len(); got != 1 {
		t.Fatalf("expected view length 1 after removal, got %d", got)
	}
	if got := view.At(0); got != "b1" {
		t.Fatalf("expected %q left in view, got %q", "b1", got)
	}
	forward := buf.Get()
	if len(forward) != 1 || forward[0] != "b1" {
		t.Fatalf("expected forward sequence [b1], got %v", forward)
	}
}

func TestReverseViewRemoveUnindexedRecord(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "a1")
	buf.Add(gridPos{1, 0, 0}, "b1")

	view := buf.Reverse()
	removed := view.Remove(0)
	if removed != "b1" {
		t.Fatalf("expected %q from removal, got %q", "b1", removed)
	}
	if got := buf.Len(); got != 1 {
		t.Fatalf("expected length 1 after removal, got %d", got)
	}

	buf.Add(gridPos{1, 0, 0}, "b2")
	if got := buf.OrEmptyList(); got != nil {
		t.Fatalf("expected re-adding a removed location to stay unindexed, got %v", got)
	}

	buf.Add(gridPos{1, 0, 0}, "b3")
	got := buf.OrEmptyList()
	want := []string{"a1", "b3"}
	if len(got) != len(want) {
		t.Fatalf("expected %d snapshots after promotion, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %q at index %d, got %q", want[i], i, got[i])
		}
	}
}

func TestReverseViewSubList(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "a1")
	buf.Add(gridPos{1, 0, 0}, "b1")
	buf.Add(gridPos{2, 0, 0}, "c1")
	buf.Add(gridPos{3, 0, 0}, "d1")
	buf.Add(gridPos{0, 0, 0}, "a2")

	view := buf.Reverse()
	sub := view.SubList(1, 3)
	if got := sub.Len(); got != 2 {
		t.Fatalf("expected sublist length 2, got %d", got)
	}
	if got := sub.At(0); got != "c1" {
		t.Fatalf("expected %q at sublist index 0, got %q", "c1", got)
	}
	if got := sub.At(1); got != "b1" {
		t.Fatalf("expected %q at sublist index 1, got %q", "b1", got)
	}

	nested := sub.SubList(1, 2)
	if got := nested.Len(); got != 1 {
		t.Fatalf("expected nested sublist length 1, got %d", got)
	}
	if got := nested.At(0); got != "b1" {
		t.Fatalf("expected %q in nested sublist, got %q", "b1", got)
	}

	empty := view.SubList(2, 2)
	if got := empty.Len(); got != 0 {
		t.Fatalf("expected empty sublist, got length %d", got)
	}
}

func TestReverseViewSubListRemove(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "a1")
	buf.Add(gridPos{1, 0, 0}, "b1")
	buf.Add(gridPos{2, 0, 0}, "c1")
	buf.Add(gridPos{0, 0, 0}, "a2")

	view := buf.Reverse()
	sub := view.SubList(1, 3)
	removed := sub.Remove(0)
	if removed != "b1" {
		t.Fatalf("expected %q from sublist removal, got %q", "b1", removed)
	}
	if got := sub.Len(); got != 1 {
		t.Fatalf("expected sublist length 1 after removal, got %d", got)
	}
	if got := sub.At(0); got != "a2" {
		t.Fatalf("expected %q left in sublist, got %q", "a2", got)
	}
	if got := view.Len(); got != 2 {
		t.Fatalf("expected root view length 2 after removal, got %d", got)
	}
}

func TestReverseViewSubListBounds(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "a")
	buf.Add(gridPos{1, 0, 0}, "b")
	view := buf.Reverse()

	mustPanic(t, ErrOutOfRange, func() { view.SubList(-1, 1) })
	mustPanic(t, ErrOutOfRange, func() { view.SubList(0, 3) })
	mustPanic(t, ErrOutOfRange, func() { view.SubList(2, 1) })
}

func TestReverseViewSubListStaleAfterShrink(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "a1")
	buf.Add(gridPos{1, 0, 0}, "b1")
	buf.Add(gridPos{0, 0, 0}, "a2")

	view := buf.Reverse()
	sub := view.SubList(0, 2)
	view.Remove(0)

	mustPanic(t, ErrOutOfRange, func() { sub.At(0) })
}

func TestReverseViewUnsupportedOps(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "a")
	view := buf.Reverse()

	mustPanic(t, ErrUnsupported, func() { view.Insert(0, "x") })
	mustPanic(t, ErrUnsupported, func() { view.Set(0, "x") })
	mustPanic(t, ErrUnsupported, func() { view.Clear() })
	mustPanic(t, ErrUnsupported, func() { view.RemoveRange(0, 1) })
}
