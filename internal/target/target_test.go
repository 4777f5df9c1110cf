package target

import "testing"

func TestEffectiveSenderIDDefaultsWhenUnset(t *testing.T) {
	tgt := Target{Name: "t1", Address: "10.0.0.1", Port: 104, ReceiverID: "RCV"}
	if got := tgt.EffectiveSenderID(); got != DefaultSenderID {
		t.Fatalf("expected default sender id %q, got %q", DefaultSenderID, got)
	}
}

func TestEffectiveSenderIDHonorsConfigured(t *testing.T) {
	tgt := Target{Name: "t1", Address: "10.0.0.1", Port: 104, ReceiverID: "RCV", SenderID: "CUSTOM"}
	if got := tgt.EffectiveSenderID(); got != "CUSTOM" {
		t.Fatalf("expected configured sender id, got %q", got)
	}
}

func TestValidateRequiresAddressPortReceiver(t *testing.T) {
	cases := []struct {
		name string
		tgt  Target
		ok   bool
	}{
		{"valid", Target{Name: "t1", Address: "10.0.0.1", Port: 104, ReceiverID: "RCV"}, true},
		{"missing address", Target{Name: "t1", Port: 104, ReceiverID: "RCV"}, false},
		{"missing port", Target{Name: "t1", Address: "10.0.0.1", ReceiverID: "RCV"}, false},
		{"missing receiver", Target{Name: "t1", Address: "10.0.0.1", Port: 104}, false},
	}
	for _, tc := range cases {
		err := tc.tgt.Validate()
		if (err == nil) != tc.ok {
			t.Errorf("%s: Validate() error = %v, want ok=%v", tc.name, err, tc.ok)
		}
	}
}
