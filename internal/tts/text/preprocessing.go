// Package text prepares generated and translated paragraphs for speech
// synthesis.
//
// Paragraph text produced by a language model often carries markdown and
// typographic punctuation that speech engines either read aloud or reject.
// Preparer turns such text into plain, NFC-normalized prose, and
// SplitForSynthesis cuts it into request-sized chunks on sentence boundaries.
package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Regex patterns for text preparation.
const (
	headingRegexPattern    = `(?m)^[ \t]{0,3}#{1,6}[ \t]+(.*?)[ \t]*#*[ \t]*$`
	paragraphRegexPattern  = `\n\s*\n`
	bulletRegexPattern     = `(?m)^[ \t]*(?:[-*+•]|\d+[.)])[ \t]+`
	emphasisRegexPattern   = `\*{1,3}|_{2,3}|~~|` + "`+"
	linkRegexPattern       = `\[([^\]]+)\]\([^)]*\)`
	referenceRegexPattern  = `\[\d+\]|[¹²³⁴⁵⁶⁷⁸⁹⁰]+`
	speakerRegexPattern    = `(?m)^[ \t]*\[[^\]]{1,40}\][ \t]*:?[ \t]*`
	whitespaceRegexPattern = `\s+`
	spaceBeforePunctuation = `\s+([,.;:!?])`
)

// Punctuation and formatting constants.
const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsis     = "..."
	ellipsisChar = "…"
	nbsp         = "\u00a0"
	zeroWidth    = "\u200b"
)

// Preparer normalizes paragraph text for speech synthesis.
type Preparer struct {
	headingPattern     *regexp.Regexp
	paragraphPattern   *regexp.Regexp
	bulletPattern      *regexp.Regexp
	emphasisPattern    *regexp.Regexp
	linkPattern        *regexp.Regexp
	referencePattern   *regexp.Regexp
	speakerPattern     *regexp.Regexp
	whitespacePattern  *regexp.Regexp
	punctuationPattern *regexp.Regexp
	repeatedMarks      []*regexp.Regexp
	typography         *strings.Replacer
}

// NewPreparer creates a Preparer with compiled patterns and replacers.
func NewPreparer() *Preparer {
	return &Preparer{
		headingPattern:     regexp.MustCompile(headingRegexPattern),
		paragraphPattern:   regexp.MustCompile(paragraphRegexPattern),
		bulletPattern:      regexp.MustCompile(bulletRegexPattern),
		emphasisPattern:    regexp.MustCompile(emphasisRegexPattern),
		linkPattern:        regexp.MustCompile(linkRegexPattern),
		referencePattern:   regexp.MustCompile(referenceRegexPattern),
		speakerPattern:     regexp.MustCompile(speakerRegexPattern),
		whitespacePattern:  regexp.MustCompile(whitespaceRegexPattern),
		punctuationPattern: regexp.MustCompile(spaceBeforePunctuation),
		repeatedMarks: []*regexp.Regexp{
			regexp.MustCompile(`!{2,}`),
			regexp.MustCompile(`\?{2,}`),
			regexp.MustCompile(`,{2,}`),
			regexp.MustCompile(`;{2,}`),
		},
		typography: strings.NewReplacer(
			emDash, ", ",
			enDash, "-",
			figureDash, "-",
			ellipsisChar, ellipsis,
			"“", `"`, "”", `"`,
			"‘", "'", "’", "'",
			nbsp, " ",
			zeroWidth, "",
		),
	}
}

// Prepare returns text as a single line of plain prose. Headings and
// paragraphs become sentences of their own. Empty or whitespace-only input
// yields "".
func (p *Preparer) Prepare(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	prepared := norm.NFC.String(text)
	prepared = strings.ReplaceAll(prepared, "\r\n", "\n")
	prepared = p.headingPattern.ReplaceAllString(prepared, "\n\n$1\n\n")

	var sentences []string

	for _, block := range p.paragraphPattern.Split(prepared, -1) {
		cleaned := ensureSentenceEnding(p.cleanBlock(block))
		if cleaned != "" {
			sentences = append(sentences, cleaned)
		}
	}

	return strings.Join(sentences, " ")
}

func (p *Preparer) cleanBlock(block string) string {
	block = p.bulletPattern.ReplaceAllString(block, "")
	block = p.speakerPattern.ReplaceAllString(block, "")
	block = p.linkPattern.ReplaceAllString(block, "$1")
	block = p.emphasisPattern.ReplaceAllString(block, "")
	block = p.referencePattern.ReplaceAllString(block, "")
	block = p.typography.Replace(block)

	for _, pattern := range p.repeatedMarks {
		block = pattern.ReplaceAllStringFunc(block, func(match string) string {
			return match[:1]
		})
	}

	block = p.whitespacePattern.ReplaceAllString(block, " ")

	return p.punctuationPattern.ReplaceAllString(block, "$1")
}

func ensureSentenceEnding(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}

	lastChar, _ := utf8.DecodeLastRuneInString(trimmed)

	switch lastChar {
	case '.', '!', '?', '"', '\'', ')':
		return trimmed
	default:
		return trimmed + "."
	}
}

// SplitForSynthesis cuts text into chunks of at most maxChars runes. Chunks
// end on sentence boundaries where possible, then on word boundaries, and a
// single word longer than maxChars is cut mid-word. Chunks are trimmed and
// never empty. A non-positive maxChars returns the trimmed text as one chunk.
func SplitForSynthesis(text string, maxChars int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	if maxChars <= 0 || utf8.RuneCountInString(trimmed) <= maxChars {
		return []string{trimmed}
	}

	var packer chunkPacker

	packer.limit = maxChars

	for _, sentence := range splitSentences(trimmed) {
		if utf8.RuneCountInString(sentence) <= maxChars {
			packer.add(sentence)

			continue
		}

		for _, word := range strings.Fields(sentence) {
			for _, piece := range splitRunes(word, maxChars) {
				packer.add(piece)
			}
		}
	}

	return packer.finish()
}

type chunkPacker struct {
	limit   int
	current strings.Builder
	size    int
	chunks  []string
}

func (c *chunkPacker) add(piece string) {
	pieceSize := utf8.RuneCountInString(piece)

	if c.size > 0 && c.size+1+pieceSize > c.limit {
		c.flush()
	}

	if c.size > 0 {
		c.current.WriteByte(' ')
		c.size++
	}

	c.current.WriteString(piece)
	c.size += pieceSize
}

func (c *chunkPacker) flush() {
	if c.size == 0 {
		return
	}

	c.chunks = append(c.chunks, c.current.String())
	c.current.Reset()
	c.size = 0
}

func (c *chunkPacker) finish() []string {
	c.flush()

	return c.chunks
}

// splitSentences breaks text after terminal punctuation that is followed by
// whitespace. Closing quotes and brackets stay with their sentence.
func splitSentences(text string) []string {
	var (
		sentences []string
		start     int
	)

	runes := []rune(text)

	for index := 0; index < len(runes); index++ {
		if !isTerminal(runes[index]) {
			continue
		}

		end := index + 1
		for end < len(runes) && isCloser(runes[end]) {
			end++
		}

		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			continue
		}

		sentence := strings.TrimSpace(string(runes[start:end]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}

		start = end
		index = end - 1
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}

	return sentences
}

func isTerminal(char rune) bool {
	return char == '.' || char == '!' || char == '?'
}

func isCloser(char rune) bool {
	return char == '"' || char == '\'' || char == ')' || char == ']'
}

func splitRunes(word string, limit int) []string {
	runes := []rune(word)
	if len(runes) <= limit {
		return []string{word}
	}

	pieces := make([]string, 0, len(runes)/limit+1)

	for start := 0; start < len(runes); start += limit {
		end := min(start+limit, len(runes))
		pieces = append(pieces, string(runes[start:end]))
	}

	return pieces
}
