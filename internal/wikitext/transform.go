// Package wikitext rewrites encyclopedia extracts into short, speakable
// segments that fit a speech-synthesis character budget.
package wikitext

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	"WhereAmI/internal/domain"
)

var (
	headingExpr      = regexp.MustCompile(`=+\s[\w\s\-/]*\s=+`)
	headingEdgeExpr  = regexp.MustCompile(`^=+|=+$`)
	fullStopExpr     = regexp.MustCompile(`\b(?:\w\.){2,}|\.[^\s\d]`)
	bracketsExpr     = regexp.MustCompile(`\([^)]*\)`)
	abbreviationExpr = regexp.MustCompile(`(\w\.( |$))+`)
)

// Policy holds the budget values applied to every transformed article.
type Policy struct {
	// MaxChars bounds the joined output text, in characters.
	MaxChars int
	// SentencesPerSection is how many sentences survive after each heading
	// once the article is over budget.
	SentencesPerSection int
	// UnwantedHeadings drops any section whose heading contains one of these.
	UnwantedHeadings []string
}

// DefaultPolicy matches the request limit of the speech service.
func DefaultPolicy() Policy {
	return Policy{
		MaxChars:            3000,
		SentencesPerSection: 2,
		UnwantedHeadings: []string{
			"Geography",
			"Climate",
			"Demographics",
			"Economy",
			"Notes",
			"See also",
			"Further reading",
			"References",
			"External links",
			"Health and education",
			"Major roads",
			"Geology",
		},
	}
}

// TransformError wraps anything that went wrong while rewriting an article.
type TransformError struct {
	Title string
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %q: %v", e.Title, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// Transformer converts raw articles into segments. It holds no per-call state.
type Transformer struct {
	policy    Policy
	tokenizer *sentences.DefaultSentenceTokenizer
}

// New loads the English sentence model; zero policy fields take their defaults.
func New(policy Policy) (*Transformer, error) {
	def := DefaultPolicy()
	if policy.MaxChars <= 0 {
		policy.MaxChars = def.MaxChars
	}
	if policy.SentencesPerSection <= 0 {
		policy.SentencesPerSection = def.SentencesPerSection
	}
	if policy.UnwantedHeadings == nil {
		policy.UnwantedHeadings = def.UnwantedHeadings
	}

	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("load sentence tokenizer: %w", err)
	}

	return &Transformer{policy: policy, tokenizer: tokenizer}, nil
}

// Transform rewrites raw into a welcome line followed by headings and
// sentences, trimmed to the policy budget.
func (t *Transformer) Transform(titleHint string, raw domain.RawArticle) (article domain.Article, err error) {
	locationText := raw.Title
	if locationText == "" {
		locationText = titleHint
	}

	defer func() {
		if r := recover(); r != nil {
			article = domain.Article{}
			err = &TransformError{Title: locationText, Err: fmt.Errorf("%v", r)}
		}
	}()

	text := replaceAmpersands(raw.Extract)

	sections := t.textToSections(text)
	sections = addWelcome(locationText, sections)

	if textLength(sections) > t.policy.MaxChars {
		sections = shortenContent(sections, t.policy.SentencesPerSection)
		sections = truncate(sections, t.policy.MaxChars)
	}
	sections = dropTrailingHeading(sections)

	return domain.Article{
		LocationText: locationText,
		Sections:     sections,
		Text:         joinText(sections),
		PageURL:      raw.PageURL,
	}, nil
}

func replaceAmpersands(text string) string {
	text = strings.ReplaceAll(text, "&amp;", "and")
	return strings.ReplaceAll(text, "&", "and")
}

// textToSections splits on wiki heading markers; the text before the first
// marker is the overview.
func (t *Transformer) textToSections(text string) []domain.Segment {
	markers := headingExpr.FindAllStringIndex(text, -1)

	overviewEnd := len(text)
	if len(markers) > 0 {
		overviewEnd = markers[0][0]
	}
	segments := t.contentSegments(text[:overviewEnd])

	for i, marker := range markers {
		bodyEnd := len(text)
		if i+1 < len(markers) {
			bodyEnd = markers[i+1][0]
		}
		heading := text[marker[0]:marker[1]]
		body := text[marker[1]:bodyEnd]

		if !t.headingIsWanted(heading) || strings.TrimSpace(body) == "" {
			continue
		}
		segments = append(segments, headingSegment(heading))
		segments = append(segments, t.contentSegments(body)...)
	}

	return segments
}

func (t *Transformer) headingIsWanted(heading string) bool {
	for _, unwanted := range t.policy.UnwantedHeadings {
		if strings.Contains(heading, unwanted) {
			return false
		}
	}
	return true
}

// headingSegment turns "=== Spanish period ===" into "Spanish period.".
func headingSegment(marker string) domain.Segment {
	text := strings.TrimSpace(headingEdgeExpr.ReplaceAllString(marker, "")) + "."
	return domain.Segment{Type: domain.SegmentHeading, Text: text}
}

func (t *Transformer) contentSegments(content string) []domain.Segment {
	var segments []domain.Segment
	for _, sentence := range t.sentences(content) {
		sentence = fixAbbreviations(sentence)
		if sentence == "" {
			continue
		}
		segments = append(segments, domain.Segment{Type: domain.SegmentContent, Text: sentence})
	}
	return segments
}

func (t *Transformer) sentences(content string) []string {
	content = prepareSentences(content)
	if strings.TrimSpace(content) == "" {
		return nil
	}

	var out []string
	for _, s := range t.tokenizer.Tokenize(content) {
		if text := strings.TrimSpace(s.Text); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// prepareSentences readies a body for the tokenizer: a missing space after a
// full stop is restored, line breaks become spaces and parentheticals go.
// Compact abbreviations such as "U.S." are left whole; spaced initials are
// only repaired per sentence, after the split.
func prepareSentences(content string) string {
	content = fullStopExpr.ReplaceAllStringFunc(content, spaceAfterFullStop)
	content = strings.ReplaceAll(content, "\n", " ")
	return bracketsExpr.ReplaceAllString(content, "")
}

func spaceAfterFullStop(match string) string {
	if strings.HasPrefix(match, ".") {
		return ". " + match[1:]
	}
	return match
}

// fixAbbreviations turns "U. S. " into "U.S." and trims the sentence.
func fixAbbreviations(sentence string) string {
	return strings.TrimSpace(abbreviationExpr.ReplaceAllStringFunc(sentence, collapseAbbreviation))
}

func collapseAbbreviation(run string) string {
	return strings.ReplaceAll(run, " ", "") + " "
}

func addWelcome(locationText string, sections []domain.Segment) []domain.Segment {
	out := make([]domain.Segment, 0, len(sections)+1)
	out = append(out, domain.Segment{Type: domain.SegmentWelcome, Text: "Welcome to " + locationText + "."})
	return append(out, sections...)
}

// shortenContent keeps at most limit consecutive content segments after any
// welcome or heading.
func shortenContent(sections []domain.Segment, limit int) []domain.Segment {
	out := make([]domain.Segment, 0, len(sections))
	count := 0
	for _, section := range sections {
		if section.Type == domain.SegmentContent {
			count++
		} else {
			count = 0
		}
		if count <= limit {
			out = append(out, section)
		}
	}
	return out
}

// truncate keeps whole segments while the joined length stays within
// maxChars. The total starts at -1 because n segments need n-1 separators.
func truncate(sections []domain.Segment, maxChars int) []domain.Segment {
	out := make([]domain.Segment, 0, len(sections))
	total := -1
	for _, section := range sections {
		total += utf8.RuneCountInString(section.Text) + 1
		if total > maxChars {
			return out
		}
		out = append(out, section)
	}
	return out
}

func dropTrailingHeading(sections []domain.Segment) []domain.Segment {
	if n := len(sections); n > 0 && sections[n-1].Type == domain.SegmentHeading {
		return sections[:n-1]
	}
	return sections
}

func joinText(sections []domain.Segment) string {
	texts := make([]string, len(sections))
	for i, section := range sections {
		texts[i] = section.Text
	}
	return strings.Join(texts, " ")
}

func textLength(sections []domain.Segment) int {
	return utf8.RuneCountInString(joinText(sections))
}
