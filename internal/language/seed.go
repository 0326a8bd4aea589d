package language

// StarterCode is one language template attached to a problem.
type StarterCode struct {
	Language string `json:"language" yaml:"language"`
	Code     string `json:"initialCode" yaml:"initialCode"`
}

// Seed picks the editor language and initial buffer for a problem.
//
// The requested language's starter code wins. Otherwise the first starter
// entry is loaded and the returned language switches to it, so the caller
// never shows a language that differs from the loaded code. With no starter
// code at all the buffer is a comment placeholder in the requested language.
func Seed(requested string, starters []StarterCode) (lang string, source string) {
	want := Canonical(requested)
	if want == "" {
		want = Default
	}

	index := Index(starters)
	if code, ok := index[want]; ok {
		return want, code
	}
	for _, sc := range starters {
		if sc.Code == "" || Canonical(sc.Language) == "" {
			continue
		}
		return Canonical(sc.Language), sc.Code
	}
	return want, Placeholder(want)
}

// Index collapses starter entries by canonical language. When two entries
// differ only in casing, the first one is kept.
func Index(starters []StarterCode) map[string]string {
	out := make(map[string]string, len(starters))
	for _, sc := range starters {
		lang := Canonical(sc.Language)
		if lang == "" || sc.Code == "" {
			continue
		}
		if _, exists := out[lang]; exists {
			continue
		}
		out[lang] = sc.Code
	}
	return out
}

// Available lists the canonical languages with starter code, in entry order.
func Available(starters []StarterCode) []string {
	seen := make(map[string]bool, len(starters))
	var out []string
	for _, sc := range starters {
		lang := Canonical(sc.Language)
		if lang == "" || sc.Code == "" || seen[lang] {
			continue
		}
		seen[lang] = true
		out = append(out, lang)
	}
	return out
}
