package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Code identifies a language in file names and translation requests.
type Code string

func (c Code) String() string { return string(c) }

type entry struct {
	code    string
	display string
	words   []string
}

// Google Translate still expects the legacy "iw" code for Hebrew, so it is the
// canonical form here and "he" is folded into it.
var known = []entry{
	{"iw", "Hebrew", []string{"hebrew", "he", "heb"}},
	{"en", "English", []string{"english", "eng"}},
	{"es", "Spanish", []string{"spanish", "spa"}},
	{"fr", "French", []string{"french", "fra", "fre"}},
	{"de", "German", []string{"german", "deu", "ger"}},
	{"it", "Italian", []string{"italian", "ita"}},
	{"pt", "Portuguese", []string{"portuguese", "por"}},
	{"ru", "Russian", []string{"russian", "rus"}},
	{"ar", "Arabic", []string{"arabic", "ara"}},
	{"fa", "Persian", []string{"persian", "farsi", "fas", "per"}},
	{"ur", "Urdu", []string{"urdu", "urd"}},
	{"yi", "Yiddish", []string{"yiddish", "yid"}},
	{"ja", "Japanese", []string{"japanese", "jpn"}},
	{"ko", "Korean", []string{"korean", "kor"}},
	{"zh-CN", "Chinese (Simplified)", []string{"chinese", "zh", "zho", "chi", "zh-cn"}},
}

var aliases map[string]*entry

func init() {
	aliases = make(map[string]*entry, len(known)*4)
	for i := range known {
		e := &known[i]
		aliases[strings.ToLower(e.code)] = e
		for _, w := range e.words {
			aliases[w] = e
		}
	}
}

// Normalize maps word forms and ISO 639-2 codes onto the canonical code.
// Unrecognized input is trimmed and its primary subtag lowercased.
func Normalize(code string) Code {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return ""
	}
	if e, ok := aliases[strings.ToLower(trimmed)]; ok {
		return Code(e.code)
	}
	primary, region, found := strings.Cut(trimmed, "-")
	if !found {
		return Code(strings.ToLower(primary))
	}
	return Code(strings.ToLower(primary) + "-" + region)
}

// NormalizeList deduplicates and normalizes a list of language codes,
// preserving the order of first appearance.
func NormalizeList(codes []string) []Code {
	if len(codes) == 0 {
		return nil
	}
	out := make([]Code, 0, len(codes))
	seen := make(map[Code]struct{}, len(codes))
	for _, raw := range codes {
		code := Normalize(raw)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// Valid reports whether code parses as a BCP 47 tag.
func Valid(code Code) bool {
	if code == "" || strings.ContainsAny(string(code), `/\ _`) {
		return false
	}
	_, err := xlanguage.Parse(string(code))
	return err == nil
}

// DisplayName returns a human-readable language name.
func DisplayName(code Code) string {
	trimmed := strings.TrimSpace(string(code))
	if trimmed == "" {
		return "Unknown"
	}
	if e, ok := aliases[strings.ToLower(trimmed)]; ok {
		return e.display
	}
	tag, err := xlanguage.Parse(trimmed)
	if err == nil {
		if name := display.Languages(xlanguage.English).Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(trimmed)
}

// Set is a membership set of language codes.
type Set map[Code]struct{}

// DefaultRTL lists the right-to-left languages recognized without configuration.
var DefaultRTL = []string{"iw", "ar", "fa", "ur", "yi"}

// NewSet normalizes codes into a Set.
func NewSet(codes ...string) Set {
	set := make(Set, len(codes))
	for _, code := range NormalizeList(codes) {
		set[code] = struct{}{}
	}
	return set
}

// Contains reports membership after normalizing code.
func (s Set) Contains(code Code) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[Normalize(string(code))]
	return ok
}
