package directive

import (
	"regexp"
	"strings"
)

// DefaultMaxPrompts bounds the image calls a single reply can trigger.
const DefaultMaxPrompts = 3

var (
	canonicalPattern  = regexp.MustCompile(`(?is)\[IMAGE:\s*(.*?)\]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	// a label the model repeats inside an otherwise canonical directive
	innerLabelPattern = regexp.MustCompile(`(?i)^(?:generated\s+)?image:\s*`)

	styleKeywords = []string{
		"style",
		"fantasy art",
		"digital art",
		"digital painting",
		"illustration",
		"oil painting",
		"concept art",
	}
)

// Rule rewrites one near-miss directive form into canonical [IMAGE: ...] syntax.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	// Canonicalize receives the description captured by Pattern and returns the replacement.
	Canonicalize func(description string) string
}

// Options configures an Extractor.
type Options struct {
	// StylePrefix is prepended to descriptions recovered from near-miss forms.
	StylePrefix string
	// MaxPrompts caps prompts per reply. Zero means DefaultMaxPrompts.
	MaxPrompts int
}

// Extractor pulls inline image directives out of DM replies.
type Extractor struct {
	rules      []Rule
	maxPrompts int
}

func NewExtractor(opts Options) *Extractor {
	maxPrompts := opts.MaxPrompts
	if maxPrompts <= 0 {
		maxPrompts = DefaultMaxPrompts
	}
	return &Extractor{
		rules:      nearMissRules(strings.TrimSpace(opts.StylePrefix)),
		maxPrompts: maxPrompts,
	}
}

// Rules returns the ordered near-miss rules.
func (e *Extractor) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Normalize applies every near-miss rule once, in order. Matches that overlap a
// canonical span are left alone, including spans produced by earlier rules.
func (e *Extractor) Normalize(text string) string {
	for _, rule := range e.rules {
		text = applyRule(rule, text)
	}
	return text
}

func applyRule(rule Rule, text string) string {
	matches := rule.Pattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}
	spans := canonicalPattern.FindAllStringIndex(text, -1)

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		if m[2] < 0 || overlaps(spans, m[0], m[1]) {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(rule.Canonicalize(text[m[2]:m[3]]))
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func overlaps(spans [][]int, start, end int) bool {
	for _, span := range spans {
		if start < span[1] && span[0] < end {
			return true
		}
	}
	return false
}

// Extract returns the reply with every directive removed and the prompts they carried.
// Text without any directive comes back untouched.
func (e *Extractor) Extract(text string) (string, []string) {
	normalized := e.Normalize(text)

	spans := canonicalPattern.FindAllStringSubmatch(normalized, -1)
	if len(spans) == 0 {
		if normalized == text {
			return text, []string{}
		}
		return collapse(normalized), []string{}
	}

	prompts := make([]string, 0, len(spans))
	for _, span := range spans {
		description := strings.TrimSpace(innerLabelPattern.ReplaceAllString(strings.TrimSpace(span[1]), ""))
		if description == "" {
			continue
		}
		if len(prompts) < e.maxPrompts {
			prompts = append(prompts, description)
		}
	}

	cleaned := collapse(canonicalPattern.ReplaceAllString(normalized, " "))
	return cleaned, prompts
}

func collapse(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

func nearMissRules(stylePrefix string) []Rule {
	canonical := func(description string) string {
		description = strings.Trim(strings.TrimSpace(description), "*_ \t")
		if description == "" {
			return ""
		}
		if stylePrefix != "" && !hasStyle(description, stylePrefix) {
			description = stylePrefix + ", " + description
		}
		return "[IMAGE: " + description + "]"
	}

	return []Rule{
		{
			Name:         "parenthesized",
			Pattern:      regexp.MustCompile(`(?i)\(\s*(?:generated\s+)?image:\s*([^()\[\]]+?)\s*\)`),
			Canonicalize: canonical,
		},
		{
			Name:         "generated-image",
			Pattern:      regexp.MustCompile(`(?im)^[ \t]*[*_]*generated image:[ \t]*([^\n\[\]]*)`),
			Canonicalize: canonical,
		},
		{
			Name:         "image-label",
			Pattern:      regexp.MustCompile(`(?im)^[ \t]*[*_]*image:[ \t]*([^\n\[\]]*)`),
			Canonicalize: canonical,
		},
		{
			Name:         "shows-image-of",
			Pattern:      regexp.MustCompile(`(?i)\*\s*shows?\s+(?:an?\s+)?image\s+of\s+([^*\n]+?)\s*\*`),
			Canonicalize: canonical,
		},
	}
}

func hasStyle(description, stylePrefix string) bool {
	lower := strings.ToLower(description)
	if strings.Contains(lower, strings.ToLower(stylePrefix)) {
		return true
	}
	for _, keyword := range styleKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
