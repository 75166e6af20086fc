package preview

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestClassifyKeyLocalScrollKeys(t *testing.T) {
	tests := []struct {
		name string
		typ  tea.KeyType
		want LocalKey
	}{
		{"page up", tea.KeyPgUp, LocalKeyPageUp},
		{"page down", tea.KeyPgDown, LocalKeyPageDown},
		{"home", tea.KeyHome, LocalKeyHome},
		{"end", tea.KeyEnd, LocalKeyEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local, _, forwardable := ClassifyKey(tea.KeyMsg{Type: tt.typ})
			if local != tt.want || forwardable {
				t.Errorf("ClassifyKey(%v) = (%v, _, %v), want (%v, _, false)", tt.typ, local, forwardable, tt.want)
			}
		})
	}
}

func TestClassifyKeyForwardsTableEntries(t *testing.T) {
	local, name, forwardable := ClassifyKey(tea.KeyMsg{Type: tea.KeyEnter})
	if local != LocalKeyNone || name != "Enter" || !forwardable {
		t.Errorf("got (%v, %q, %v), want (none, Enter, true)", local, name, forwardable)
	}
}

func TestClassifyKeyForwardsRunes(t *testing.T) {
	local, name, forwardable := ClassifyKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if local != LocalKeyNone || name != "x" || !forwardable {
		t.Errorf("got (%v, %q, %v), want (none, x, true)", local, name, forwardable)
	}
}

func TestClassifyKeyDropsUnknownKey(t *testing.T) {
	local, name, forwardable := ClassifyKey(tea.KeyMsg{Type: tea.KeyInsert})
	if forwardable || local != LocalKeyNone || name != "" {
		t.Errorf("got (%v, %q, %v), want an unforwardable, unnamed key", local, name, forwardable)
	}
}
