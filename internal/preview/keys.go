package preview

import tea "github.com/charmbracelet/bubbletea"

// LocalKey identifies a key the preview engine handles itself rather
// than forwarding to the agent (spec.md §4.4's scroll contract).
type LocalKey int

const (
	LocalKeyNone LocalKey = iota
	LocalKeyPageUp
	LocalKeyPageDown
	LocalKeyHome
	LocalKeyEnd
)

// keyNameTable is the fixed, finite translation from a bubbletea key
// to the multiplexer's key name, per spec.md §9's open question 2:
// any key not in this table is dropped when the preview is focused.
var keyNameTable = map[tea.KeyType]string{
	tea.KeyEnter:      "Enter",
	tea.KeyBackspace:  "BSpace",
	tea.KeyTab:        "Tab",
	tea.KeyShiftTab:   "BTab",
	tea.KeyEsc:        "Escape",
	tea.KeyUp:         "Up",
	tea.KeyDown:       "Down",
	tea.KeyLeft:       "Left",
	tea.KeyRight:      "Right",
	tea.KeyCtrlC:      "C-c",
	tea.KeyCtrlD:      "C-d",
	tea.KeyCtrlU:      "C-u",
	tea.KeyCtrlL:      "C-l",
	tea.KeyCtrlA:      "C-a",
	tea.KeyCtrlE:      "C-e",
	tea.KeyCtrlW:      "C-w",
	tea.KeyDelete:     "DC",
	tea.KeySpace:      "Space",
}

// ClassifyKey reports whether a key is handled locally by the preview
// (scroll/home/end) and, if not, returns the translated key name plus
// whether the key is in the fixed table at all.
func ClassifyKey(msg tea.KeyMsg) (local LocalKey, tmuxName string, forwardable bool) {
	switch msg.Type {
	case tea.KeyPgUp:
		return LocalKeyPageUp, "", false
	case tea.KeyPgDown:
		return LocalKeyPageDown, "", false
	case tea.KeyHome:
		return LocalKeyHome, "", false
	case tea.KeyEnd:
		return LocalKeyEnd, "", false
	}

	if name, ok := keyNameTable[msg.Type]; ok {
		return LocalKeyNone, name, true
	}

	if msg.Type == tea.KeyRunes && len(msg.Runes) > 0 {
		return LocalKeyNone, string(msg.Runes), true
	}

	return LocalKeyNone, "", false
}
