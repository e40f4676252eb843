package templater

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// prompts longer than this are split into several sections
	multiSectionThreshold = 50
	wordsPerSectionTarget = 20
	maxSections           = 4
	maxKeywords           = 3
	minKeywordLength      = 4

	defaultKeywords = "innovation and excellence"
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {}, "to": {},
	"for": {}, "of": {}, "with": {}, "by": {}, "a": {}, "an": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "have": {}, "has": {}, "had": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {}, "should": {},
}

var fillerTemplates = [...]string{
	"This section focuses on {keywords}. Our approach ensures that every aspect is carefully considered to deliver the best possible results for our users.",
	"When it comes to {keywords}, we believe in excellence and innovation. This drives us to create solutions that truly make a difference.",
	"Our expertise in {keywords} allows us to provide comprehensive services that meet and exceed expectations. We're committed to quality and customer satisfaction.",
	"The importance of {keywords} cannot be overstated in today's digital landscape. We leverage cutting-edge technology to stay ahead of the curve.",
}

// Section is one titled block of generated body copy
type Section struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Keywords []string `json:"keywords,omitempty"`
}

// ExtractKeywords returns up to three distinct lower-cased words of four or
// more characters that are not stop words, in order of first appearance.
func ExtractKeywords(text string) []string {
	var keywords []string
	seen := make(map[string]struct{})

	for _, word := range strings.Fields(strings.ToLower(text)) {
		if _, stop := stopWords[word]; stop {
			continue
		}
		if utf8.RuneCountInString(word) < minKeywordLength {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}

	return keywords
}

// splitSections chunks the prompt into contiguous word runs. Long prompts
// get min(4, words/20) sections of words/n words, the last one taking any
// remainder; everything else becomes a single "About" section.
func splitSections(prompt string) []Section {
	words := strings.Fields(prompt)
	if len(words) <= multiSectionThreshold {
		return []Section{{Title: "About", Content: prompt}}
	}

	n := min(maxSections, len(words)/wordsPerSectionTarget)
	per := len(words) / n

	sections := make([]Section, 0, n)
	for i := 0; i < n; i++ {
		end := (i + 1) * per
		if i == n-1 {
			end = len(words)
		}
		sections = append(sections, Section{
			Title:   "Section " + strconv.Itoa(i+1),
			Content: strings.Join(words[i*per:end], " "),
		})
	}
	return sections
}

// fillSection replaces the raw prompt text with filler copy built around its keywords
func fillSection(s Section, rng *rand.Rand) Section {
	keywords := ExtractKeywords(s.Content)
	phrase := defaultKeywords
	if len(keywords) > 0 {
		phrase = strings.Join(keywords, ", ")
	}

	template := fillerTemplates[rng.IntN(len(fillerTemplates))]
	return Section{
		Title:    s.Title,
		Content:  strings.ReplaceAll(template, "{keywords}", phrase),
		Keywords: keywords,
	}
}
