// Package mention parses raw text for sigil-prefixed personality references
// and disambiguates overlapping matches.
package mention

import (
	"context"
	"log/slog"
	"strings"

	"github.com/halcyonlabs/personagate/internal/personality"
)

// DefaultMaxWords bounds how many words a multi-word mention may span.
const DefaultMaxWords = 4

// Match is one resolved personality reference. Transient: produced and
// consumed within a single resolution call.
type Match struct {
	Text        string
	Words       int
	Personality *personality.Personality
}

// Resolver scans message text for personality mentions.
type Resolver struct {
	sigil    string
	maxWords int
	dir      personality.Directory
}

// New creates a resolver for the configured mention sigil.
func New(sigil string, maxWords int, dir personality.Directory) *Resolver {
	if sigil == "" {
		sigil = "&"
	}
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	return &Resolver{sigil: sigil, maxWords: maxWords, dir: dir}
}

// Resolve returns the single best personality match in text, or nil.
//
// Every sigil occurrence yields candidates: the longest sub-combination
// first (down to two words), then the single word. The match with the
// greatest word count wins; equal word counts resolve to the first match
// found. That tie-break is load-bearing: changing it changes which
// personality a user reaches.
func (r *Resolver) Resolve(ctx context.Context, identity, text string) *Match {
	var best *Match
	for _, candidate := range r.candidates(text) {
		for k := min(len(candidate), r.maxWords); k >= 1; k-- {
			phrase := strings.Join(candidate[:k], " ")
			p := r.lookup(ctx, identity, phrase)
			if p == nil {
				continue
			}
			if best == nil || k > best.Words {
				best = &Match{Text: phrase, Words: k, Personality: p}
			}
			break // shorter prefixes of this candidate cannot beat this match
		}
	}
	return best
}

// candidates extracts word runs following each sigil occurrence. A run
// stops at sentence-ending punctuation, a newline, the next sigil, or after
// maxWords words.
func (r *Resolver) candidates(text string) [][]string {
	var out [][]string
	rest := text
	offset := 0
	for {
		idx := strings.Index(rest, r.sigil)
		if idx < 0 {
			break
		}
		// Sigil must start the text or follow whitespace.
		absolute := offset + idx
		if absolute > 0 && !isSpace(text[absolute-1]) {
			rest = rest[idx+len(r.sigil):]
			offset = absolute + len(r.sigil)
			continue
		}

		words := r.collectWords(rest[idx+len(r.sigil):])
		if len(words) > 0 {
			out = append(out, words)
		}

		rest = rest[idx+len(r.sigil):]
		offset = absolute + len(r.sigil)
	}
	return out
}

// collectWords gathers up to maxWords words from the text following a
// sigil, honoring the stop conditions.
func (r *Resolver) collectWords(text string) []string {
	if nl := strings.IndexAny(text, "\n\r"); nl >= 0 {
		text = text[:nl]
	}
	if next := strings.Index(text, r.sigil); next >= 0 {
		text = text[:next]
	}

	var words []string
	for _, raw := range strings.Fields(text) {
		word, terminal := trimWord(raw)
		if word != "" {
			words = append(words, word)
		}
		if terminal || len(words) == r.maxWords {
			break
		}
	}
	return words
}

// trimWord strips surrounding punctuation and reports whether the word
// ended a sentence.
func trimWord(raw string) (word string, terminal bool) {
	terminal = strings.HasSuffix(raw, ".") || strings.HasSuffix(raw, "!") || strings.HasSuffix(raw, "?")
	word = strings.Trim(raw, ".,!?;:\"'()[]")
	return word, terminal
}

// lookup probes canonical names first, then aliases. Directory errors are
// best-effort: log and treat as no match.
func (r *Resolver) lookup(ctx context.Context, identity, phrase string) *personality.Personality {
	p, err := r.dir.GetByName(ctx, phrase)
	if err != nil {
		slog.Debug("mention name lookup failed", "phrase", phrase, "error", err)
	}
	if p != nil {
		return p
	}
	p, err = r.dir.GetByAlias(ctx, identity, phrase)
	if err != nil {
		slog.Debug("mention alias lookup failed", "phrase", phrase, "error", err)
	}
	return p
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
