// Package extract pulls scene/shot/prompt records out of semi-structured
// image-prompt text.
//
// Text is scanned line by line. A scene marker (optionally carrying a shot
// id) or a standalone shot marker opens a block; a prompt label followed by
// a quoted span closes it with one record. Blocks that end without a usable
// prompt are counted as skipped and diagnosed, and never stop the scan.
package extract

import (
	"fmt"
	"strings"

	"github.com/jackzampolin/shotlist/internal/table"
)

// Result is the outcome of extracting records from one text.
type Result struct {
	Records     []table.Record
	Skipped     int
	Diagnostics []table.Diagnostic
}

// Extractor extracts records using a marker grammar.
type Extractor struct {
	grammar *Grammar
}

// New returns an extractor for g. A nil grammar uses DefaultGrammar.
func New(g *Grammar) *Extractor {
	if g == nil {
		g = DefaultGrammar()
	}
	return &Extractor{grammar: g}
}

// Extract extracts records from text with the default grammar.
func Extract(text string) *Result {
	return New(nil).Extract(text)
}

// block is a marker awaiting its prompt.
type block struct {
	line       int
	scene      string
	shot       string
	headerOnly bool // scene marker without a shot id
}

func (b *block) describe() string {
	if b.shot == "" {
		return fmt.Sprintf("scene %s", b.scene)
	}
	return fmt.Sprintf("scene %s shot %s", b.scene, b.shot)
}

// quote is a prompt whose closing quote has not been seen yet.
type quote struct {
	block *block
	line  int
	close string
	parts []string
}

type scanner struct {
	g   *Grammar
	res *Result

	scene, shot string
	sawMarker   bool

	pending  *block
	open     *quote
	awaiting *block // label seen, quoted prompt expected on a following line
	awaitAt  int
}

// Extract extracts records from text. Empty text yields an empty result.
func (e *Extractor) Extract(text string) *Result {
	s := &scanner{g: e.grammar, res: &Result{}}
	for i, raw := range strings.Split(text, "\n") {
		s.scanLine(i+1, strings.TrimRight(raw, "\r"))
	}
	s.finish()

	if !s.sawMarker && strings.TrimSpace(text) != "" {
		s.res.Diagnostics = append(s.res.Diagnostics, table.Diagnostic{Reason: "no scene markers found"})
	}
	return s.res
}

func (s *scanner) scanLine(n int, line string) {
	if s.open != nil {
		if !s.isMarker(line) {
			s.continueQuote(line)
			return
		}
		s.skip(s.open.line, fmt.Sprintf("%s: unterminated quoted prompt", s.open.block.describe()))
		s.open = nil
	}

	if s.awaiting != nil {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			return
		}
		b := s.awaiting
		s.awaiting = nil
		if _, ok := openingQuote(trimmed); ok {
			s.startQuote(b, s.awaitAt, trimmed)
			return
		}
		s.skip(s.awaitAt, fmt.Sprintf("%s: prompt label without a quoted prompt", b.describe()))
	}

	if scene, shot, ok := s.g.matchScene(line); ok {
		s.closePending(false)
		s.sawMarker = true
		s.scene, s.shot = scene, shot
		s.pending = &block{line: n, scene: scene, shot: shot, headerOnly: shot == ""}
		return
	}

	if shot, ok := s.g.matchShot(line); ok {
		s.closePending(true)
		s.sawMarker = true
		s.shot = shot
		s.pending = &block{line: n, scene: s.scene, shot: shot}
		return
	}

	if rest, ok := s.g.matchLabel(line); ok {
		b := s.pending
		s.pending = nil
		if b == nil {
			if !s.sawMarker {
				s.skip(n, "prompt label outside any scene")
				return
			}
			// Another prompt for the current shot.
			b = &block{line: n, scene: s.scene, shot: s.shot}
		}

		rest = strings.TrimSpace(rest)
		if rest == "" {
			s.awaiting = b
			s.awaitAt = n
			return
		}
		if _, ok := openingQuote(rest); !ok {
			s.skip(n, fmt.Sprintf("%s: prompt is not quoted", b.describe()))
			return
		}
		s.startQuote(b, n, rest)
	}
}

func (s *scanner) isMarker(line string) bool {
	if _, _, ok := s.g.matchScene(line); ok {
		return true
	}
	if _, ok := s.g.matchShot(line); ok {
		return true
	}
	_, ok := s.g.matchLabel(line)
	return ok
}

// startQuote begins a quoted prompt at text, which starts with (or contains)
// an opening quote.
func (s *scanner) startQuote(b *block, n int, text string) {
	idx, closer := openingQuoteIndex(text)
	body := text[idx:]
	if end := firstClosing(body, closer); end >= 0 {
		s.emit(b, n, body[:end])
		return
	}
	s.open = &quote{block: b, line: n, close: closer, parts: []string{body}}
}

func (s *scanner) continueQuote(line string) {
	q := s.open
	if end := firstClosing(line, q.close); end >= 0 {
		q.parts = append(q.parts, line[:end])
		s.open = nil
		s.emit(q.block, q.line, strings.Join(q.parts, " "))
		return
	}
	q.parts = append(q.parts, line)
}

func (s *scanner) emit(b *block, n int, prompt string) {
	prompt = cleanPrompt(prompt)
	if prompt == "" {
		s.skip(n, fmt.Sprintf("%s: empty prompt", b.describe()))
		return
	}
	s.res.Records = append(s.res.Records, table.Record{
		Scene:  b.scene,
		Shot:   b.shot,
		Prompt: prompt,
	})
}

// closePending counts the pending block as skipped. A scene header with no
// shot id is absorbed instead when a shot marker follows it.
func (s *scanner) closePending(byShot bool) {
	b := s.pending
	s.pending = nil
	if b == nil || (b.headerOnly && byShot) {
		return
	}
	s.skip(b.line, fmt.Sprintf("%s: no prompt found", b.describe()))
}

func (s *scanner) finish() {
	if s.open != nil {
		s.skip(s.open.line, fmt.Sprintf("%s: unterminated quoted prompt", s.open.block.describe()))
		s.open = nil
	}
	if s.awaiting != nil {
		s.skip(s.awaitAt, fmt.Sprintf("%s: prompt label without a quoted prompt", s.awaiting.describe()))
		s.awaiting = nil
	}
	s.closePending(false)
}

func (s *scanner) skip(line int, reason string) {
	s.res.Skipped++
	s.res.Diagnostics = append(s.res.Diagnostics, table.Diagnostic{Line: line, Reason: reason})
}

var quotePairs = []struct{ open, close string }{
	{`"`, `"`},
	{"“", "”"},
}

// openingQuote reports whether text starts with an opening quote.
func openingQuote(text string) (string, bool) {
	for _, p := range quotePairs {
		if strings.HasPrefix(text, p.open) {
			return p.close, true
		}
	}
	return "", false
}

// openingQuoteIndex returns the offset just past the opening quote at the
// start of text and the matching closing quote.
func openingQuoteIndex(text string) (int, string) {
	for _, p := range quotePairs {
		if strings.HasPrefix(text, p.open) {
			return len(p.open), p.close
		}
	}
	return 0, `"`
}

// firstClosing returns the offset of the first closing quote in text, or -1.
// A curly-quoted prompt without its curly closer may be closed by a
// straight quote.
func firstClosing(text, closer string) int {
	idx := strings.Index(text, closer)
	if idx < 0 && closer != `"` {
		idx = strings.Index(text, `"`)
	}
	return idx
}

func cleanPrompt(prompt string) string {
	prompt = strings.ReplaceAll(prompt, "**", "")
	return strings.Join(strings.Fields(prompt), " ")
}
