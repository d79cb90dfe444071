// Package bundle turns a resolved, ordered set of classified snippets into
// the single executable script served to a registered site. The server only
// ever emits text here; no snippet content is evaluated server-side.
package bundle

import (
	"fmt"
	"strings"

	"github.com/injectly/injectly/internal/snippet"
)

// MarkerAttribute tags every injected script element so operators can spot
// them in the page inspector.
const MarkerAttribute = "data-injectly"

// Assemble concatenates one emitted unit per snippet, in input order, inside
// an outer isolation boundary. The boundary logs a start message naming the
// domain and catches any escaping error so a broken snippet never propagates
// into the host page's own scripts. Unit bytes are embedded untouched: no
// reflowing or indentation, since whitespace inside pass-through code (a
// multi-line template literal, say) is significant.
func Assemble(domain string, snippets []snippet.Snippet) string {
	units := make([]string, 0, len(snippets))
	for _, sn := range snippets {
		units = append(units, Unit(sn))
	}

	var b strings.Builder
	b.WriteString("(function() {\n")
	fmt.Fprintf(&b, "  console.log(%s);\n", JSString("Injectly: Loading scripts for "+domain+"..."))
	b.WriteString("  try {\n")
	b.WriteString(strings.Join(units, "\n"))
	b.WriteString("\n  } catch (e) {\n")
	b.WriteString("    console.error('Injectly Error:', e);\n")
	b.WriteString("  }\n")
	b.WriteString("})();\n")
	return b.String()
}

// Unit emits one snippet as an isolated, attribute-preserving execution unit.
func Unit(sn snippet.Snippet) string {
	switch sn.Kind {
	case snippet.KindTag:
		if sn.HasSrc {
			return externalUnit(sn)
		}
		return inlineUnit(sn.Inline)
	case snippet.KindSelfInvoking:
		// Already self-executing and self-scoped; emitted byte-identical.
		return sn.Source
	default:
		return bareUnit(sn.Source)
	}
}

// externalUnit appends a script element loading sn.SrcURL. The load is
// fire-and-forget: nothing in the bundle waits on it.
func externalUnit(sn snippet.Snippet) string {
	var b strings.Builder
	b.WriteString("(function() {\n")
	b.WriteString("  var scriptTag = document.createElement('script');\n")
	fmt.Fprintf(&b, "  scriptTag.src = %s;\n", JSString(sn.SrcURL))
	fmt.Fprintf(&b, "  scriptTag.defer = %t;\n", sn.Defer)
	if sn.WebsiteID != "" {
		fmt.Fprintf(&b, "  scriptTag.setAttribute('data-website-id', %s);\n", JSString(sn.WebsiteID))
	}
	fmt.Fprintf(&b, "  scriptTag.setAttribute('%s', 'true');\n", MarkerAttribute)
	b.WriteString("  document.head.appendChild(scriptTag);\n")
	b.WriteString("  console.log('Injectly: Added external script ->', scriptTag.src);\n")
	b.WriteString("})();")
	return b.String()
}

func inlineUnit(body string) string {
	var b strings.Builder
	b.WriteString("(function() {\n")
	b.WriteString("  var inlineScript = document.createElement('script');\n")
	fmt.Fprintf(&b, "  inlineScript.textContent = %s;\n", JSString(body))
	fmt.Fprintf(&b, "  inlineScript.setAttribute('%s', 'true');\n", MarkerAttribute)
	b.WriteString("  document.head.appendChild(inlineScript);\n")
	b.WriteString("  console.log('Injectly: Added inline script.');\n")
	b.WriteString("})();")
	return b.String()
}

// bareUnit gives plain statements their own function scope so declarations
// in one snippet cannot collide with a sibling's.
func bareUnit(code string) string {
	return "(function() {\n" + code + "\n})();"
}

// JSString renders s as a double-quoted JavaScript string literal. Besides
// the usual escapes, '<' becomes \u003c so a literal close-tag sequence in
// snippet content can never terminate a surrounding script element, and the
// JS line separators U+2028/U+2029 are escaped as well.
func JSString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '<':
			b.WriteString(`\u003c`)
		case '\u2028':
			b.WriteString(`\u2028`)
		case '\u2029':
			b.WriteString(`\u2029`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
