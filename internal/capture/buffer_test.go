package capture

import (
	"errors"
	"testing"
)

type gridPos struct {
	X, Y, Z int
}

func mustPanic(t *testing.T, want error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic carrying %v, got none", want)
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("expected error panic, got %T(%v)", r, r)
		}
		if !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
	}()
	fn()
}

func TestBufferRecordsDistinctLocationsInOrder(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "stone")
	buf.Add(gridPos{1, 0, 0}, "dirt")
	buf.Add(gridPos{2, 0, 0}, "sand")

	if buf.IsEmpty() {
		t.Fatalf("expected non-empty buffer after three adds")
	}
	if got := buf.Len(); got != 3 {
		t.Fatalf("expected length 3, got %d", got)
	}
	got := buf.Get()
	want := []string{"stone", "dirt", "sand"}
	if len(got) != len(want) {
		t.Fatalf("expected %d snapshots, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %q at index %d, got %q", want[i], i, got[i])
		}
	}
}

func TestBufferPromotesOnDuplicateLocation(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "first")
	buf.Add(gridPos{1, 0, 0}, "other")
	if buf.Indexed() {
		t.Fatalf("expected distinct locations to stay on the fast path")
	}
	buf.Add(gridPos{0, 0, 0}, "second")
	if !buf.Indexed() {
		t.Fatalf("expected a repeated location to promote the buffer")
	}

	got := buf.Get()
	want := []string{"second", "other"}
	if len(got) != len(want) {
		t.Fatalf("expected %d effective snapshots, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %q at index %d, got %q", want[i], i, got[i])
		}
	}
	if got := buf.Len(); got != 2 {
		t.Fatalf("expected effective length 2, got %d", got)
	}
}

func TestBufferKeepsFirstSeenOrderAcrossPromotion(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "a1")
	buf.Add(gridPos{1, 0, 0}, "b1")
	buf.Add(gridPos{2, 0, 0}, "c1")
	buf.Add(gridPos{1, 0, 0}, "b2")
	buf.Add(gridPos{3, 0, 0}, "d1")

	got := buf.Get()
	want := []string{"a1", "b2", "c1", "d1"}
	if len(got) != len(want) {
		t.Fatalf("expected %d effective snapshots, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %q at index %d, got %q", want[i], i, got[i])
		}
	}
}

func TestBufferGetReturnsCopy(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "stone")
	buf.Add(gridPos{1, 0, 0}, "dirt")

	first := buf.Get()
	first[0] = "mutated"
	second := buf.Get()
	if second[0] != "stone" {
		t.Fatalf("expected %q after external mutation, got %q", "stone", second[0])
	}
}

func TestBufferEmpty(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	if !buf.IsEmpty() {
		t.Fatalf("expected fresh buffer to be empty")
	}
	if got := buf.Len(); got != 0 {
		t.Fatalf("expected length 0, got %d", got)
	}
	if got := buf.Get(); got != nil {
		t.Fatalf("expected nil snapshot list, got %v", got)
	}
}

func TestBufferOrElse(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	fallback := []string{"fallback"}
	got := buf.OrElse(fallback)
	if len(got) != 1 || got[0] != "fallback" {
		t.Fatalf("expected fallback from empty buffer, got %v", got)
	}

	buf.Add(gridPos{0, 0, 0}, "stone")
	got = buf.OrElse(fallback)
	if len(got) != 1 || got[0] != "stone" {
		t.Fatalf("expected captured snapshots, got %v", got)
	}
}

func TestBufferOrEmptyListRequiresIndexedStorage(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	if got := buf.OrEmptyList(); got != nil {
		t.Fatalf("expected empty list before any capture, got %v", got)
	}

	buf.Add(gridPos{0, 0, 0}, "stone")
	buf.Add(gridPos{1, 0, 0}, "dirt")
	if got := buf.OrEmptyList(); got != nil {
		t.Fatalf("expected empty list while records stay unindexed, got %v", got)
	}

	buf.Add(gridPos{0, 0, 0}, "granite")
	got := buf.OrEmptyList()
	want := []string{"granite", "dirt"}
	if len(got) != len(want) {
		t.Fatalf("expected %d snapshots once indexed, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %q at index %d, got %q", want[i], i, got[i])
		}
	}
}

func TestBufferDrainToClearsIndexedStorage(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "first")
	buf.Add(gridPos{0, 0, 0}, "second")
	buf.Add(gridPos{1, 0, 0}, "other")

	var drained []string
	calls := 0
	buf.DrainTo(func(snaps []string) {
		calls++
		drained = snaps
		if !buf.IsEmpty() {
			t.Fatalf("expected buffer cleared before consumer runs")
		}
	})
	if calls != 1 {
		t.Fatalf("expected one consumer call, got %d", calls)
	}
	want := []string{"second", "other"}
	if len(drained) != len(want) {
		t.Fatalf("expected %d drained snapshots, got %d", len(want), len(drained))
	}
	for i := range want {
		if drained[i] != want[i] {
			t.Fatalf("expected %q at index %d, got %q", want[i], i, drained[i])
		}
	}

	buf.Add(gridPos{2, 0, 0}, "fresh")
	buf.Add(gridPos{2, 0, 0}, "fresher")
	got := buf.Get()
	if len(got) != 1 || got[0] != "fresher" {
		t.Fatalf("expected fresh batch after drain, got %v", got)
	}
}

func TestBufferDrainToLeavesUnindexedRecords(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "stone")
	buf.Add(gridPos{1, 0, 0}, "dirt")

	var drained []string
	buf.DrainTo(func(snaps []string) { drained = snaps })
	if len(drained) != 2 {
		t.Fatalf("expected consumer to see 2 snapshots, got %d", len(drained))
	}
	if got := buf.Len(); got != 2 {
		t.Fatalf("expected unindexed records to survive drain, got length %d", got)
	}
	if got := buf.OrEmptyList(); got != nil {
		t.Fatalf("expected empty list after unindexed drain, got %v", got)
	}
}

func TestBufferDrainToSkipsConsumerWhenEmpty(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	calls := 0
	buf.DrainTo(func([]string) { calls++ })
	if calls != 0 {
		t.Fatalf("expected no consumer call on empty buffer, got %d", calls)
	}
	buf.DrainTo(nil)
}

func TestBufferStreamMatchesGet(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "a1")
	buf.Add(gridPos{1, 0, 0}, "b1")

	var got []string
	for snap := range buf.Stream() {
		got = append(got, snap)
	}
	want := buf.Get()
	if len(got) != len(want) {
		t.Fatalf("expected %d streamed snapshots, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %q at index %d, got %q", want[i], i, got[i])
		}
	}

	buf.Add(gridPos{0, 0, 0}, "a2")
	got = got[:0]
	for snap := range buf.Stream() {
		got = append(got, snap)
	}
	want = buf.Get()
	if len(got) != len(want) {
		t.Fatalf("expected %d streamed snapshots after promotion, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %q at index %d, got %q", want[i], i, got[i])
		}
	}
}

func TestBufferStreamStopsEarly(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "a")
	buf.Add(gridPos{1, 0, 0}, "b")
	buf.Add(gridPos{2, 0, 0}, "c")

	seen := 0
	for range buf.Stream() {
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Fatalf("expected 2 snapshots before break, got %d", seen)
	}
}

func TestBufferStreamDetectsMutation(t *testing.T) {
	buf := NewBuffer[gridPos, string]()
	buf.Add(gridPos{0, 0, 0}, "a")
	buf.Add(gridPos{1, 0, 0}, "b")
	buf.Add(gridPos{2, 0, 0}, "c")

	mustPanic(t, ErrCursorState, func() {
		for range buf.Stream() {
			buf.Add(gridPos{9, 9, 9}, "late")
		}
	})
}
