package steps

import (
	"errors"
	"testing"

	"slidecast/internal/services"
)

func TestAdvanceGuards(t *testing.T) {
	nav := New(1)
	if _, err := nav.Advance(Facts{}); !errors.Is(err, services.ErrPrerequisite) {
		t.Fatalf("expected prerequisite error without file, got %v", err)
	}
	if nav.Current() != 1 {
		t.Fatalf("refused advance moved to %d", nav.Current())
	}

	facts := Facts{HasFile: true, HasSlides: true}
	tr, err := nav.Advance(facts)
	if err != nil || tr != (Transition{From: 1, To: 2}) {
		t.Fatalf("unexpected advance %+v %v", tr, err)
	}
	if _, err := nav.Advance(facts); err == nil {
		t.Fatal("expected script guard entering step 3")
	}

	facts.HasScript = true
	for want := 3; want <= Last; want++ {
		tr, err := nav.Advance(facts)
		if err != nil || tr.To != want {
			t.Fatalf("advance to %d: %+v %v", want, tr, err)
		}
	}
	if _, err := nav.Advance(facts); err == nil {
		t.Fatal("expected error advancing past last step")
	}
}

func TestBackBounds(t *testing.T) {
	nav := New(2)
	tr, err := nav.Back()
	if err != nil || !tr.Backward() || nav.Current() != 1 {
		t.Fatalf("unexpected back %+v %v", tr, err)
	}
	if _, err := nav.Back(); err == nil {
		t.Fatal("expected error backing past first step")
	}
}

func TestJumpTo(t *testing.T) {
	tests := []struct {
		name  string
		step  int
		facts Facts
		ok    bool
	}{
		{name: "upload always", step: 1, ok: true},
		{name: "slides present", step: 2, facts: Facts{HasSlides: true}, ok: true},
		{name: "slides missing", step: 2},
		{name: "script present", step: 3, facts: Facts{HasScript: true}, ok: true},
		{name: "script missing", step: 3, facts: Facts{HasSlides: true}},
		{name: "audio never", step: 4, facts: Facts{HasSlides: true, HasScript: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := New(5)
			_, err := nav.JumpTo(tt.step, tt.facts)
			if tt.ok {
				if err != nil || nav.Current() != tt.step {
					t.Fatalf("expected jump to %d, got %d %v", tt.step, nav.Current(), err)
				}
				return
			}
			if err == nil || nav.Current() != 5 {
				t.Fatalf("expected refusal, got step %d err %v", nav.Current(), err)
			}
		})
	}
}

func TestNewClamps(t *testing.T) {
	if New(0).Current() != First || New(9).Current() != Last {
		t.Fatal("expected New to clamp")
	}
	if Name(4) != "audio" || Name(7) != "step-7" {
		t.Fatal("unexpected step names")
	}
}
