package tui

import (
	"testing"

	"charm.land/bubbles/v2/key"
)

// TestKeyMapHelpCoversBindings verifies every binding is reachable from the full help view.
func TestKeyMapHelpCoversBindings(t *testing.T) {
	k := newKeyMap()
	seen := map[string]bool{}
	for _, group := range k.FullHelp() {
		for _, b := range group {
			seen[b.Help().Desc] = true
		}
	}
	for _, b := range []key.Binding{k.quit, k.reload, k.toggleHelp, k.nextTab, k.prevTab, k.prevDay, k.nextDay, k.today, k.copyJSON} {
		if !seen[b.Help().Desc] {
			t.Fatalf("binding %q missing from full help", b.Help().Desc)
		}
	}
	if len(k.ShortHelp()) == 0 {
		t.Fatal("expected short help bindings")
	}
}

// TestKeyMapMatches verifies the day and tab bindings resolve from key presses.
func TestKeyMapMatches(t *testing.T) {
	k := newKeyMap()
	cases := []struct {
		binding key.Binding
		code    rune
	}{
		{k.prevDay, '['},
		{k.nextDay, ']'},
		{k.nextTab, 'l'},
		{k.prevTab, 'h'},
		{k.copyJSON, 'y'},
	}
	for _, tc := range cases {
		if !key.Matches(keyRune(tc.code), tc.binding) {
			t.Fatalf("expected %q to match %q", string(tc.code), tc.binding.Help().Desc)
		}
	}
}
