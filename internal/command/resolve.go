package command

import "github.com/AumkarMali/backendVibeVideo/internal/mediaerr"

// Interpret picks the operation for a request. A non-blank override wins
// outright; otherwise message must pass the intent gate and match a rule.
func Interpret(override, message string) (Token, error) {
	if token, ok := Override(override); ok {
		return token, nil
	}
	if !HasIntent(message) {
		return "", mediaerr.New(mediaerr.NoIntentDetected, "message does not ask for an action")
	}
	token, ok := Resolve(message)
	if !ok {
		return "", mediaerr.New(mediaerr.UnmappedPhrase, "could not map %q to an operation", message)
	}
	return token, nil
}
