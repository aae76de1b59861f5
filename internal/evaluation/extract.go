package evaluation

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// NotAvailable is returned when a field cannot be found in the text
	NotAvailable = "N/A"
	// DefaultCandidateName is returned when no name label is present
	DefaultCandidateName = "Candidate"

	RecommendHire            = "Hire"
	RecommendReject          = "Reject"
	RecommendInterview       = "Interview"
	RecommendStrongPotential = "Strong Potential"

	interviewScoreThreshold = 7.0
)

var (
	scorePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Score|คะแนน)\s*(?:\(0-10\))?:\s*(\d+(\.\d+)?)`),
		regexp.MustCompile(`(?i)(?:Score|คะแนน)\s*-*\s*(\d+(\.\d+)?)`),
		regexp.MustCompile(`(\d+(\.\d+)?)\s*/\s*10`),
	}
	scoreFallback = regexp.MustCompile(`(?i)(?:Score|คะแนน).*?(\d+(\.\d+)?)`)

	namePattern  = regexp.MustCompile(`(?i)(?:Name|ชื่อ)\s*[:\-]?\s*(.*)`)
	emailPattern = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)

	recommendationLabel = regexp.MustCompile(`(?i)(?:Recommendation|Recommend|Decision|Verdict|Status|ข้อเสนอแนะ|คำแนะนำ|การตัดสินใจ|สถานะ)\s*[:\-]\s*(.*)`)
	parentheticalGloss  = regexp.MustCompile(`\(([^)]*)\)`)
	labeledWord         = regexp.MustCompile(`(?i)\b(strong potential|hire[sd]?|interview(?:s|ed)?|reject(?:s|ed|ion)?)\b`)
	decisionVerb        = regexp.MustCompile(`(?i)\b(hire[sd]?|interview(?:s|ed)?|reject(?:s|ed)?)\b`)
	clauseBoundary      = regexp.MustCompile(`(?i)[.!?;\n]|,?\s+but\s+`)
)

// thaiDecisions maps Thai decision phrases to canonical tokens. Only consulted
// inside a labeled recommendation, never across free text.
var thaiDecisions = []struct {
	phrase string
	token  string
}{
	{"มีแวว", RecommendStrongPotential},
	{"มีศักยภาพ", RecommendStrongPotential},
	{"รับเข้าทำงาน", RecommendHire},
	{"จ้างงาน", RecommendHire},
	{"เรียกสัมภาษณ์", RecommendInterview},
	{"สัมภาษณ์", RecommendInterview},
	{"เรียกคุย", RecommendInterview},
	{"ปฏิเสธ", RecommendReject},
	{"ไม่ผ่าน", RecommendReject},
}

var englishNegators = map[string]bool{
	"not": true, "never": true, "neither": true, "nor": true,
	"don't": true, "dont": true, "doesn't": true, "didn't": true,
	"won't": true, "wouldn't": true, "shouldn't": true,
	"can't": true, "cannot": true, "couldn't": true,
	"isn't": true, "wasn't": true, "aren't": true,
}

// decisionCues are words that put a following decision verb in a
// recommending position: "we should hire", "I recommend to interview"
var decisionCues = map[string]bool{
	"should": true, "would": true, "will": true, "could": true, "must": true,
	"can": true, "shall": true, "might": true, "to": true,
	"we": true, "i": true, "let's": true, "lets": true, "please": true,
	"recommend": true, "recommended": true, "suggest": true, "advise": true,
	"strongly": true, "definitely": true,
}

var passiveAuxiliaries = map[string]bool{
	"is": true, "was": true, "were": true, "are": true,
	"be": true, "been": true, "being": true, "got": true,
}

// ExtractScore returns the first score in [0,10] found in text, or "N/A".
// The matched text is returned as written, not reformatted.
func ExtractScore(text string) string {
	for _, p := range scorePatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			if inScoreRange(m[1]) {
				return m[1]
			}
		}
	}

	if m := scoreFallback.FindStringSubmatch(text); m != nil && inScoreRange(m[1]) {
		return m[1]
	}

	return NotAvailable
}

func inScoreRange(s string) bool {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	return v >= 0 && v <= 10
}

// ExtractName returns the text following the first name label, or "Candidate"
func ExtractName(text string) string {
	m := namePattern.FindStringSubmatch(text)
	if m == nil {
		return DefaultCandidateName
	}
	name := strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), "*"))
	if name == "" {
		return DefaultCandidateName
	}
	return name
}

// ExtractEmail returns the first email-shaped token, or "N/A"
func ExtractEmail(text string) string {
	if m := emailPattern.FindString(text); m != "" {
		return m
	}
	return NotAvailable
}

// ExtractRecommendation resolves a hiring recommendation from evaluation text.
// Lookup order: labeled line, free-text decision verbs, then the score.
func ExtractRecommendation(text string) string {
	for _, m := range recommendationLabel.FindAllStringSubmatch(text, -1) {
		if token, ok := labeledDecision(m[1]); ok {
			return token
		}
	}

	if token, ok := contextualDecision(text); ok {
		return token
	}

	if score := ExtractScore(text); score != NotAvailable {
		if v, err := strconv.ParseFloat(score, 64); err == nil && v >= interviewScoreThreshold {
			return RecommendInterview
		}
	}

	return NotAvailable
}

func labeledDecision(segment string) (string, bool) {
	// An English gloss such as "(Hire)" wins over the Thai wording around it
	for _, g := range parentheticalGloss.FindAllStringSubmatch(segment, -1) {
		if token, ok := labeledEnglish(g[1]); ok {
			return token, true
		}
	}

	if token, ok := labeledEnglish(segment); ok {
		return token, true
	}

	best, bestPos := "", -1
	for _, d := range thaiDecisions {
		idx := strings.Index(segment, d.phrase)
		if idx < 0 || thaiNegated(segment[:idx]) {
			continue
		}
		if bestPos < 0 || idx < bestPos {
			best, bestPos = d.token, idx
		}
	}
	return best, bestPos >= 0
}

// labeledEnglish accepts any non-negated decision word. A label already says
// the segment is a recommendation.
func labeledEnglish(segment string) (string, bool) {
	for _, loc := range labeledWord.FindAllStringSubmatchIndex(segment, -1) {
		if englishNegated(currentClause(segment[:loc[0]])) {
			continue
		}
		return canonicalDecision(segment[loc[2]:loc[3]]), true
	}
	return "", false
}

// contextualDecision finds a decision verb in free text. The verb counts only
// in a recommending position, so "the hiring team" or "Interview skills were
// not assessed" yield nothing.
func contextualDecision(text string) (string, bool) {
	for _, loc := range decisionVerb.FindAllStringSubmatchIndex(text, -1) {
		clause := currentClause(text[:loc[0]])
		if englishNegated(clause) {
			continue
		}
		word := strings.ToLower(text[loc[2]:loc[3]])
		if !recommendingPosition(clauseWords(clause), word) {
			continue
		}
		return canonicalDecision(word), true
	}
	return "", false
}

func recommendingPosition(words []string, verb string) bool {
	if len(words) == 0 {
		return false
	}
	last := words[len(words)-1]

	for _, w := range words[max(len(words)-2, 0):] {
		if decisionCues[w] {
			return true
		}
	}
	if passiveAuxiliaries[last] && strings.HasSuffix(verb, "ed") {
		return true
	}
	// noun use after an article: "this is a reject"
	return (last == "a" || last == "an") && !strings.HasPrefix(verb, "interview")
}

func canonicalDecision(word string) string {
	w := strings.ToLower(word)
	switch {
	case strings.HasPrefix(w, "strong"):
		return RecommendStrongPotential
	case strings.HasPrefix(w, "hir"):
		return RecommendHire
	case strings.HasPrefix(w, "interview"):
		return RecommendInterview
	default:
		return RecommendReject
	}
}

// currentClause returns the part of prefix after the last sentence or
// "but" boundary
func currentClause(prefix string) string {
	locs := clauseBoundary.FindAllStringIndex(prefix, -1)
	if len(locs) == 0 {
		return prefix
	}
	return prefix[locs[len(locs)-1][1]:]
}

func clauseWords(clause string) []string {
	words := strings.Fields(strings.ToLower(clause))
	for i, w := range words {
		words[i] = strings.Trim(w, ",:\"'()*")
	}
	return words
}

// englishNegated reports whether a clause negates the decision that follows
// it. "no" only counts right before the decision ("no hire").
func englishNegated(clause string) bool {
	words := clauseWords(clause)
	for _, w := range words {
		if englishNegators[w] {
			return true
		}
	}
	return len(words) > 0 && words[len(words)-1] == "no"
}

func thaiNegated(prefix string) bool {
	p := strings.TrimSpace(prefix)
	return strings.HasSuffix(p, "ไม่") || strings.HasSuffix(p, "ไม่ควร")
}
