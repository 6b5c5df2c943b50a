package keys

// Linux input-event-codes.h, keyboard subset. Both variants of a modifier
// map to the same logical key.
var evdevKeys = map[uint16]Key{
	1: Esc, 14: "backspace", 15: Tab, 28: Enter, 57: Space, 58: "capslock",

	29: Ctrl, 97: Ctrl,
	42: Shift, 54: Shift,
	56: Alt, 100: Alt,
	125: Super, 126: Super,

	2: "1", 3: "2", 4: "3", 5: "4", 6: "5", 7: "6", 8: "7", 9: "8", 10: "9", 11: "0",
	12: "minus", 13: "equal", 26: "leftbrace", 27: "rightbrace",
	39: "semicolon", 40: "apostrophe", 41: "grave", 43: "backslash",
	51: "comma", 52: "dot", 53: "slash",

	16: "q", 17: "w", 18: "e", 19: "r", 20: "t", 21: "y", 22: "u", 23: "i", 24: "o", 25: "p",
	30: "a", 31: "s", 32: "d", 33: "f", 34: "g", 35: "h", 36: "j", 37: "k", 38: "l",
	44: "z", 45: "x", 46: "c", 47: "v", 48: "b", 49: "n", 50: "m",

	59: "f1", 60: "f2", 61: "f3", 62: "f4", 63: "f5", 64: "f6",
	65: "f7", 66: "f8", 67: "f9", 68: "f10", 87: "f11", 88: "f12",

	102: "home", 103: "up", 104: "pageup", 105: "left", 106: "right",
	107: "end", 108: "down", 109: "pagedown", 110: "insert", 111: "delete",
}

// known is every logical key name accepted by Lookup.
var known = func() map[Key]struct{} {
	m := make(map[Key]struct{}, len(evdevKeys))
	for _, k := range evdevKeys {
		m[k] = struct{}{}
	}
	return m
}()

// FromEvdev maps a Linux key code to its logical key.
func FromEvdev(code uint16) (Key, bool) {
	k, ok := evdevKeys[code]
	return k, ok
}

// EvdevCodes returns every Linux key code producing k.
func EvdevCodes(k Key) []uint16 {
	var codes []uint16
	for code, key := range evdevKeys {
		if key == k {
			codes = append(codes, code)
		}
	}
	return codes
}
