package keyboard

var letterKeys = [26]Key{A, B, C, D, E, F, G, H, I, J, K, L, M, N, O, P, Q, R, S, T, U, V, W, X, Y, Z}

var digitKeys = [10]Key{N0, N1, N2, N3, N4, N5, N6, N7, N8, N9}

// Symbols printed in red on the keys, typed with SYMBOL SHIFT.
var symbolKeys = map[rune]Key{
	'!':  N1,
	'@':  N2,
	'#':  N3,
	'$':  N4,
	'%':  N5,
	'&':  N6,
	'\'': N7,
	'(':  N8,
	')':  N9,
	'_':  N0,
	'<':  R,
	'>':  T,
	';':  O,
	'"':  P,
	'^':  H,
	'-':  J,
	'+':  K,
	'=':  L,
	':':  Z,
	'?':  C,
	'/':  V,
	'*':  B,
	',':  N,
	'.':  M,
}

// StrokeFor returns the key combination that types r.
func StrokeFor(r rune) (Stroke, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return Stroke{Primary: letterKeys[r-'a'], Secondary: NoKey}, true
	case r >= 'A' && r <= 'Z':
		return Stroke{Primary: letterKeys[r-'A'], Secondary: CShift}, true
	case r >= '0' && r <= '9':
		return Stroke{Primary: digitKeys[r-'0'], Secondary: NoKey}, true
	case r == ' ':
		return Stroke{Primary: Space, Secondary: NoKey}, true
	case r == '\n' || r == '\r':
		return Stroke{Primary: Enter, Secondary: NoKey}, true
	case r == '\b':
		// DELETE is CAPS SHIFT + 0.
		return Stroke{Primary: N0, Secondary: CShift}, true
	}
	if k, ok := symbolKeys[r]; ok {
		return Stroke{Primary: k, Secondary: SShift}, true
	}
	return Stroke{}, false
}
