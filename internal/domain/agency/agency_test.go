package agency

import (
	"sync"
	"testing"
)

func testAgencies() Agencies {
	return Agencies{Primary: "TRIMET", PrimaryName: "TriMet", List: []string{"TRIMET", "CTRAN", "SAM"}}
}

func TestStopLayers(t *testing.T) {
	if got := testAgencies().StopLayers(); got != "trimet:stops,ctran:stops,sam:stops" {
		t.Errorf("StopLayers() = %q", got)
	}
	if got := (Agencies{}).StopLayers(); got != "" {
		t.Errorf("empty agencies: %q", got)
	}
}

func TestExclusionFilter(t *testing.T) {
	if got := testAgencies().ExclusionFilter(); got != "-ctran:stops,-sam:stops" {
		t.Errorf("ExclusionFilter() = %q", got)
	}
}

func TestOwnsID(t *testing.T) {
	a := testAgencies()
	tests := map[string]bool{
		"trimet:stops:1234": true,
		"1234::TRIMET":      true,
		"ctran:stops:99":    false,
		"trimetro:stops:1":  false,
		"":                  false,
	}
	for id, want := range tests {
		if got := a.OwnsID(id); got != want {
			t.Errorf("OwnsID(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestState_Lifecycle(t *testing.T) {
	s := NewState(testAgencies())

	f, ok := s.Filter()
	if !ok || f != "-ctran:stops,-sam:stops" {
		t.Fatalf("Filter() = %q, %v", f, ok)
	}

	if !s.Disable() {
		t.Error("first Disable should report a change")
	}
	if s.Disable() {
		t.Error("second Disable should be a no-op")
	}
	if _, ok := s.Filter(); ok || !s.Disabled() {
		t.Error("disabled state still yields a filter")
	}

	s.Reset()
	if _, ok := s.Filter(); !ok || s.Disabled() {
		t.Error("Reset did not restore the filter")
	}
}

func TestState_SingleAgencyHasNoFilter(t *testing.T) {
	s := NewState(Agencies{Primary: "TRIMET", List: []string{"TRIMET"}})
	if f, ok := s.Filter(); ok || f != "" {
		t.Errorf("Filter() = %q, %v", f, ok)
	}
}

func TestState_ConcurrentDisable(t *testing.T) {
	s := NewState(testAgencies())
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changed int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Filter()
			if s.Disable() {
				mu.Lock()
				changed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if changed != 1 {
		t.Errorf("want exactly one state change, got %d", changed)
	}
}
