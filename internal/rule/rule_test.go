package rule

import "testing"

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{"ok route", Rule{Name: "r1", Expression: "true", Action: ActionRoute, Target: "pacs1"}, false},
		{"ok discard", Rule{Name: "r2", Expression: "Modality == 'SR'", Action: ActionDiscard}, false},
		{"empty expression", Rule{Name: "r3", Action: ActionDiscard}, true},
		{"unknown action", Rule{Name: "r4", Expression: "true", Action: "bogus"}, true},
		{"route without target", Rule{Name: "r5", Expression: "true", Action: ActionRoute}, true},
		{"unknown trigger", Rule{Name: "r6", Expression: "true", Action: ActionDiscard, ActionTrigger: "bogus"}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.rule.Validate()
			if c.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !c.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestEffectiveTrigger(t *testing.T) {
	r := Rule{}
	if got := r.EffectiveTrigger(); got != TriggerSeries {
		t.Fatalf("expected default TriggerSeries, got %v", got)
	}

	r.ActionTrigger = TriggerStudy
	if got := r.EffectiveTrigger(); got != TriggerStudy {
		t.Fatalf("expected TriggerStudy, got %v", got)
	}
}
