package printmode

import "testing"

func TestModeLabel(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{Modes.Unprinted, "Unprinted"},
		{Modes.Again, "Again"},
		{Modes.Full, "Full"},
		{Modes.Bill, "Bill"},
		{Mode{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.mode.Name, func(t *testing.T) {
			if got := tt.mode.Label(); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestByName(t *testing.T) {
	if m := ByName("full"); m == nil || *m != Modes.Full {
		t.Errorf("ByName(full) = %v, want %v", m, Modes.Full)
	}
	if m := ByName("reprint"); m != nil {
		t.Errorf("ByName(reprint) = %v, want nil", m)
	}
}
