package keyset

import (
	"fmt"
	"sort"
	"strings"
)

// Key identifies one physical key. Values are Windows virtual-key codes;
// key sources on other platforms translate into this space so that
// persisted bindings stay valid across platforms and restarts.
type Key uint64

// Fixed combo keys
const (
	LShift   Key = 0xA0
	LControl Key = 0xA2

	Modifier = LControl
	Trigger  = KeyJ
	Shift    = LShift
)

const (
	KeyA Key = 0x41 + iota
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
)

// alphabet holds A-Z without the trigger key, in ascending order.
var alphabet = func() []Key {
	keys := make([]Key, 0, 25)
	for k := KeyA; k <= KeyZ; k++ {
		if k == Trigger {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}()

// Alphabet returns the keys that can carry a binding.
func Alphabet() []Key {
	out := make([]Key, len(alphabet))
	copy(out, alphabet)
	return out
}

// IsLetter reports whether k is one of A-Z.
func IsLetter(k Key) bool {
	return k >= KeyA && k <= KeyZ
}

// Bindable reports whether k is in the alphabet scan set.
func Bindable(k Key) bool {
	return IsLetter(k) && k != Trigger
}

// String returns "A".."Z" for letters and a hex code otherwise.
func (k Key) String() string {
	switch {
	case IsLetter(k):
		return string(rune('A' + (k - KeyA)))
	case k == LControl:
		return "LCtrl"
	case k == LShift:
		return "LShift"
	default:
		return fmt.Sprintf("0x%02X", uint64(k))
	}
}

// ParseLetter parses a single bindable letter, case-insensitive.
func ParseLetter(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if len(s) != 1 {
		return 0, fmt.Errorf("invalid key %q: expected a single letter", s)
	}
	c := strings.ToUpper(s)[0]
	if c < 'A' || c > 'Z' {
		return 0, fmt.Errorf("invalid key %q: expected a letter", s)
	}
	k := KeyA + Key(c-'A')
	if !Bindable(k) {
		return 0, fmt.Errorf("key %s is the trigger key and cannot be bound", k)
	}
	return k, nil
}

// Sort orders keys ascending in place.
func Sort(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}

// FirstPressed returns the lowest key among candidates that pressed
// reports as down. Candidates need not be sorted.
func FirstPressed(candidates []Key, pressed func(Key) bool) (Key, bool) {
	var (
		best  Key
		found bool
	)
	for _, k := range candidates {
		if found && k >= best {
			continue
		}
		if pressed(k) {
			best, found = k, true
		}
	}
	return best, found
}
