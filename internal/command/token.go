package command

import (
	"fmt"
	"strings"
)

// Token is a canonical operation name understood by the processing and merge engines.
type Token string

const (
	RemoveBackground Token = "rm-bg"
	RemoveSilence    Token = "rm-silence"
	RemoveStutter    Token = "rm-stutter"
	RemoveFiller     Token = "rm-filler"
	RemoveMouth      Token = "rm-mouth"
	RemoveHesitation Token = "rm-hesitation"
	RemoveBreath     Token = "rm-breath"
	Normalize        Token = "normalize"
	AIEnhance        Token = "ai-enhance"
	PreserveMusic    Token = "preserve-music"
	Transcribe       Token = "transcribe"
	Comprehensive    Token = "comprehensive"
	Merge            Token = "merge"
)

var all = []Token{
	RemoveBackground,
	RemoveSilence,
	RemoveStutter,
	RemoveFiller,
	RemoveMouth,
	RemoveHesitation,
	RemoveBreath,
	Normalize,
	AIEnhance,
	PreserveMusic,
	Transcribe,
	Comprehensive,
	Merge,
}

// All returns every canonical token in declaration order.
func All() []Token {
	return append([]Token(nil), all...)
}

func (t Token) String() string {
	return string(t)
}

// Valid reports whether t belongs to the canonical set.
func (t Token) Valid() bool {
	for _, known := range all {
		if t == known {
			return true
		}
	}
	return false
}

// Parse validates a raw token string against the canonical set.
func Parse(raw string) (Token, error) {
	t := Token(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown operation %q", raw)
	}
	return t, nil
}

// Override returns a caller supplied token as-is, only stripping surrounding
// whitespace. Membership is checked by the dispatcher, not here.
func Override(raw string) (Token, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	return Token(trimmed), true
}
