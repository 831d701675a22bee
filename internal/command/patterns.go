package command

import (
	"regexp"
	"strings"
)

// Rule maps a lower-cased phrase pattern to a canonical token. Rank is the rule's
// position in the table; lower ranks are evaluated first.
type Rule struct {
	Rank    int
	Pattern *regexp.Regexp
	Token   Token
}

type ruleDef struct {
	pattern string
	token   Token
}

// Order matters: the first match wins. Descriptive rules precede the verbatim
// power-user tokens, and the generic noise and "everything" rules follow the
// specific phrasings.
var ruleDefs = []ruleDef{
	{`\bmouth\s*(noise|sound|click)s?\b|\blip\s*smack|\bsmack(ing|s)?\b`, RemoveMouth},
	{`\bbreath(s|ing)?\b|\binhal(e|es|ing)\b`, RemoveBreath},
	{`\bfiller(s|\s*words?)?\b|\bums?\b|\buhs?\b|\berms?\b`, RemoveFiller},
	{`\bstutter(s|ing|ed)?\b|\bstammer(s|ing)?\b|\brepeated\s+words?\b`, RemoveStutter},
	{`\bhesitat(ion|ions|e|es|ing)\b|\bfalse\s+starts?\b`, RemoveHesitation},
	{`\bsilen(ce|ces|t)\b|\bdead\s*air\b|\b(long|awkward|quiet)\s+(pause|pauses|gaps?)\b`, RemoveSilence},
	{`\b(keep|preserve|protect|retain)\b.*\bmusic\b|\bmusic\b.*\b(intact|untouched|preserved)\b`, PreserveMusic},
	{`\bbackground\b|\bnoise\b|\bnoisy\b|\bhum\b|\bhiss\b|\bstatic\b|\bde-?noise\b`, RemoveBackground},
	{`\bnormali[sz](e|ed|es|ing|ation)\b|\b(even|level|balance)\s+out\b|\b(volume|loudness|levels?)\b.*\b(even|consistent|balanced|match)\b|\bloudness\b`, Normalize},
	{`\benhance(d|ment|s)?\b|\bimprove\b.*\b(quality|audio|sound|clarity)\b|\b(studio|professional|podcast)\s+(quality|sound)\b|\bclarity\b`, AIEnhance},
	{`\btranscri(be|bed|bing|ption|pt)\b|\bsubtitles?\b|\bcaptions?\b|\bspeech\s+to\s+text\b`, Transcribe},
	{`\b(merge|combine|join|concatenate|concat|stitch)\b`, Merge},
	{`\beverything\b|\bthe\s+works\b|\bfull\s+(clean\s*up|treatment|pass)\b|\bclean\s+(it|this|everything)\s+up\b|\bfix\s+(it\s+)?all\b`, Comprehensive},

	{`\brm[\s_-]?bg\b`, RemoveBackground},
	{`\brm[\s_-]?silence\b`, RemoveSilence},
	{`\brm[\s_-]?stutter\b`, RemoveStutter},
	{`\brm[\s_-]?filler\b`, RemoveFiller},
	{`\brm[\s_-]?mouth\b`, RemoveMouth},
	{`\brm[\s_-]?hesitation\b`, RemoveHesitation},
	{`\brm[\s_-]?breath\b`, RemoveBreath},
	{`\bnormalize\b`, Normalize},
	{`\bai[\s_-]?enhance\b`, AIEnhance},
	{`\bpreserve[\s_-]?music\b`, PreserveMusic},
	{`\btranscribe\b`, Transcribe},
	{`\bcomprehensive\b`, Comprehensive},
	{`\bmerge\b`, Merge},
}

var rules = compileRules(ruleDefs)

func compileRules(defs []ruleDef) []Rule {
	out := make([]Rule, len(defs))
	for i, def := range defs {
		out[i] = Rule{Rank: i, Pattern: regexp.MustCompile(def.pattern), Token: def.token}
	}
	return out
}

// Rules returns a copy of the pattern table in rank order.
func Rules() []Rule {
	return append([]Rule(nil), rules...)
}

// intentVerbs are matched as plain substrings so inflections ("removing",
// "trimmed") still count.
var intentVerbs = []string{
	"remove", "cut", "clean", "delete", "strip", "get rid", "eliminate", "reduce",
	"trim", "drop", "fix", "repair", "enhance", "improve", "boost", "normalize",
	"normalise", "level", "balance", "even out", "transcribe", "caption", "subtitle",
	"merge", "combine", "join", "concat", "stitch", "keep", "preserve", "process",
	"edit", "apply", "make", "can you", "could you", "please", "i want", "i need",
	"rm", "comprehensive",
}

// HasIntent reports whether text contains any actionable verb.
func HasIntent(text string) bool {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return false
	}
	for _, verb := range intentVerbs {
		if strings.Contains(lower, verb) {
			return true
		}
	}
	return false
}

// Resolve maps free text to the token of the first matching rule.
func Resolve(text string) (Token, bool) {
	lower := strings.ToLower(text)
	for _, rule := range rules {
		if rule.Pattern.MatchString(lower) {
			return rule.Token, true
		}
	}
	return "", false
}
