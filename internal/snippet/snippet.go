// Package snippet classifies operator-authored script snippets into the
// handful of shapes the bundle assembler knows how to emit. Classification is
// best-effort: snippet content is trusted operator input, not attacker
// controlled, so ambiguous text degrades to a safe wrapper rather than an
// error.
package snippet

import (
	"strings"

	"golang.org/x/net/html"
)

type Kind int

const (
	// KindTag is a markup-wrapped snippet (`<script ...>...</script>`).
	KindTag Kind = iota
	// KindSelfInvoking is an immediately-invoked function expression,
	// already safe to emit verbatim.
	KindSelfInvoking
	// KindBare is plain statements that need their own scope.
	KindBare
)

func (k Kind) String() string {
	switch k {
	case KindTag:
		return "tag"
	case KindSelfInvoking:
		return "self-invoking"
	default:
		return "bare"
	}
}

// Snippet is one classified snippet. Source always holds the trimmed raw
// text; the remaining fields are populated for KindTag only.
type Snippet struct {
	Kind   Kind
	Source string

	// HasSrc distinguishes `src=""` (external with empty URL, authored
	// mistake surfaced at delivery) from no src attribute at all (inline).
	HasSrc    bool
	SrcURL    string
	Defer     bool
	WebsiteID string
	Inline    string
}

// Classify parses one stored snippet's raw text into exactly one variant.
func Classify(raw string) Snippet {
	trimmed := strings.TrimSpace(raw)

	if strings.HasPrefix(strings.ToLower(trimmed), "<script") {
		return classifyTag(trimmed)
	}
	if isSelfInvoking(trimmed) {
		return Snippet{Kind: KindSelfInvoking, Source: trimmed}
	}
	return Snippet{Kind: KindBare, Source: trimmed}
}

func classifyTag(trimmed string) Snippet {
	out := Snippet{Kind: KindTag, Source: trimmed}

	// The tokenizer treats script element content as raw text, so inline
	// bodies survive untouched up to the closing tag.
	z := html.NewTokenizer(strings.NewReader(trimmed))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return out
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "script" {
				continue
			}
			for _, attr := range tok.Attr {
				switch attr.Key {
				case "src":
					out.HasSrc = true
					out.SrcURL = strings.TrimSpace(attr.Val)
				case "data-website-id":
					out.WebsiteID = attr.Val
				}
			}
			// Matches the historical behavior: any literal "defer"
			// inside the snippet text flags the load as deferred.
			out.Defer = strings.Contains(trimmed, "defer")
			if out.HasSrc {
				return out
			}
		case html.TextToken:
			if !out.HasSrc {
				out.Inline = strings.TrimSpace(string(z.Text()))
				return out
			}
		case html.EndTagToken:
			return out
		}
	}
}

// isSelfInvoking sniffs the opening and closing token sequences of an
// anonymous IIFE. Text that merely resembles one passes through verbatim;
// that ambiguity is accepted because the author controls the content.
func isSelfInvoking(s string) bool {
	if !strings.HasPrefix(s, "(function") {
		return false
	}
	return strings.HasSuffix(s, ")();") || strings.HasSuffix(s, ")()")
}
