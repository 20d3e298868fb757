package tokens

// The scrambler is a fixed substitution over the username alphabet. It is
// obfuscation only and must stay byte-for-byte stable: codes issued by other
// deployments depend on it.
const (
	usernameAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_"
	shuffledAlphabet = "NGthMiXu2xmnfzVROkEjvaUPYg1AqyZcbL7C_6WIJQoDeT85SHrKB40l3F9sdpw"
)

var scrambleTable, unscrambleTable = buildTables(usernameAlphabet, shuffledAlphabet)

func buildTables(plain string, shuffled string) (forward [256]byte, reverse [256]byte) {
	if len(plain) != len(shuffled) {
		panic("tokens: scramble alphabets differ in length")
	}
	for i := range forward {
		forward[i] = byte(i)
		reverse[i] = byte(i)
	}
	for i := 0; i < len(plain); i++ {
		forward[plain[i]] = shuffled[i]
		reverse[shuffled[i]] = plain[i]
	}
	return forward, reverse
}

// Scramble substitutes every username character; other bytes pass through.
func Scramble(username string) string {
	return translate(username, &scrambleTable)
}

// Unscramble inverts Scramble.
func Unscramble(scrambled string) string {
	return translate(scrambled, &unscrambleTable)
}

func translate(str string, table *[256]byte) string {
	out := make([]byte, len(str))
	for i := 0; i < len(str); i++ {
		out[i] = table[str[i]]
	}
	return string(out)
}
