package featureflags

import "testing"

func TestEnabled_BoolSpellings(t *testing.T) {
	m := NewManager("comments=on,uploads=off,search=true,digest=false,beta=1,legacy=0")

	want := map[string]bool{
		"comments": true, "search": true, "beta": true,
		"uploads": false, "digest": false, "legacy": false,
	}
	for flag, expect := range want {
		if got := m.Enabled(flag, 1); got != expect {
			t.Errorf("Enabled(%q) = %v, want %v", flag, got, expect)
		}
	}
}

func TestEnabled_PercentRollout(t *testing.T) {
	m := NewManager("full=100%,dark=0%,pilot=30%")

	if !m.Enabled("full", 1) {
		t.Fatal("a 100% rollout covers every user")
	}
	if m.Enabled("dark", 1) {
		t.Fatal("a 0% rollout covers nobody")
	}
	if m.Enabled("pilot", 0) {
		t.Fatal("anonymous users must not join a partial rollout")
	}

	// The bucket for one user never changes between evaluations.
	first := m.Enabled("pilot", 97)
	for i := 0; i < 5; i++ {
		if m.Enabled("pilot", 97) != first {
			t.Fatal("same user landed in different buckets")
		}
	}
}

func TestEnabledOr_Defaults(t *testing.T) {
	m := NewManager("comments=off")

	if m.EnabledOr(FlagComments, 1, true) {
		t.Fatal("configured off flag must override the default")
	}
	if !m.EnabledOr(FlagRegistration, 1, true) {
		t.Fatal("unset flag should fall back to the default")
	}
	if m.EnabledOr(FlagImageUploads, 1, false) {
		t.Fatal("unset flag with false default should stay disabled")
	}
}

func TestRawAndSnapshot(t *testing.T) {
	m := NewManager(" garbage , search=on , pilot = 40% ,digest=off ")

	raw := m.Raw()
	if len(raw) != 3 {
		t.Fatalf("parsed %d flags, want 3", len(raw))
	}
	for flag, value := range map[string]string{"search": "on", "pilot": "40%", "digest": "off"} {
		if raw[flag] != value {
			t.Errorf("flag %q parsed as %q, want %q", flag, raw[flag], value)
		}
	}

	snap := m.Snapshot(321)
	if len(snap) != 3 {
		t.Fatalf("snapshot has %d entries, want 3", len(snap))
	}
	if !snap["search"] || snap["digest"] {
		t.Fatalf("snapshot should evaluate flags, got %#v", snap)
	}
}
