package bundle

import (
	"strings"
	"testing"

	"github.com/injectly/injectly/internal/snippet"
)

func TestJSStringEscapes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`plain`, `"plain"`},
		{`say "hi"`, `"say \"hi\""`},
		{"line\nbreak", `"line\nbreak"`},
		{"tab\there", `"tab\there"`},
		{"cr\rhere", `"cr\rhere"`},
		{`back\slash`, `"back\\slash"`},
		{`</script>`, `"\u003c/script>"`},
		{"bell\x07", `"bell\u0007"`},
		{"sep\u2028here", `"sep\u2028here"`},
		{"sep\u2029here", `"sep\u2029here"`},
	}
	for _, tc := range cases {
		if got := JSString(tc.in); got != tc.want {
			t.Fatalf("JSString(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestJSStringNeverEmitsCloseTag(t *testing.T) {
	out := JSString(`</script><script>alert(1)</script>`)
	if strings.Contains(strings.ToLower(out), "<script") || strings.Contains(strings.ToLower(out), "</script") {
		t.Fatalf("escaped literal still contains a script tag sequence: %s", out)
	}
}

func TestUnitExternal(t *testing.T) {
	sn := snippet.Snippet{
		Kind:      snippet.KindTag,
		HasSrc:    true,
		SrcURL:    "https://cdn.example.com/lib.js",
		Defer:     true,
		WebsiteID: "abc-123",
	}
	out := Unit(sn)
	for _, want := range []string{
		`scriptTag.src = "https://cdn.example.com/lib.js";`,
		`scriptTag.defer = true;`,
		`scriptTag.setAttribute('data-website-id', "abc-123");`,
		`scriptTag.setAttribute('data-injectly', 'true');`,
		`document.head.appendChild(scriptTag);`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("external unit missing %q:\n%s", want, out)
		}
	}
}

func TestUnitExternalNoDeferNoWebsiteID(t *testing.T) {
	sn := snippet.Snippet{Kind: snippet.KindTag, HasSrc: true, SrcURL: "https://x.example.com/a.js"}
	out := Unit(sn)
	if !strings.Contains(out, "scriptTag.defer = false;") {
		t.Fatalf("expected explicit defer=false:\n%s", out)
	}
	if strings.Contains(out, "data-website-id") {
		t.Fatalf("website id attribute must be omitted when unset:\n%s", out)
	}
}

func TestUnitInline(t *testing.T) {
	sn := snippet.Snippet{Kind: snippet.KindTag, Inline: "var a = 1;\nconsole.log(a);"}
	out := Unit(sn)
	if !strings.Contains(out, `inlineScript.textContent = "var a = 1;\nconsole.log(a);";`) {
		t.Fatalf("inline unit missing escaped body:\n%s", out)
	}
	if !strings.Contains(out, `setAttribute('data-injectly', 'true')`) {
		t.Fatalf("inline unit missing marker attribute:\n%s", out)
	}
}

func TestUnitSelfInvokingVerbatim(t *testing.T) {
	src := "(function() { console.log('x'); })();"
	out := Unit(snippet.Snippet{Kind: snippet.KindSelfInvoking, Source: src})
	if out != src {
		t.Fatalf("self-invoking unit must be byte-identical, got:\n%s", out)
	}
}

func TestUnitBareGetsOwnScope(t *testing.T) {
	out := Unit(snippet.Snippet{Kind: snippet.KindBare, Source: "var leaky = 1;"})
	want := "(function() {\nvar leaky = 1;\n})();"
	if out != want {
		t.Fatalf("bare unit = %q, want %q", out, want)
	}
}

func TestAssembleWrapperAndOrder(t *testing.T) {
	snippets := []snippet.Snippet{
		{Kind: snippet.KindBare, Source: "var first = 1;"},
		{Kind: snippet.KindSelfInvoking, Source: "(function() { var second = 2; })();"},
		{Kind: snippet.KindBare, Source: "var third = 3;"},
	}
	out := Assemble("example.com", snippets)

	if !strings.Contains(out, `console.log("Injectly: Loading scripts for example.com...");`) {
		t.Fatalf("missing loading trace:\n%s", out)
	}
	if !strings.Contains(out, "try {") || !strings.Contains(out, "} catch (e) {") {
		t.Fatalf("missing failure boundary:\n%s", out)
	}
	if !strings.Contains(out, "console.error('Injectly Error:', e);") {
		t.Fatalf("missing error trace:\n%s", out)
	}

	iFirst := strings.Index(out, "first")
	iSecond := strings.Index(out, "second")
	iThird := strings.Index(out, "third")
	if iFirst < 0 || iSecond < 0 || iThird < 0 {
		t.Fatalf("missing snippet content:\n%s", out)
	}
	if !(iFirst < iSecond && iSecond < iThird) {
		t.Fatalf("snippets out of order: %d %d %d", iFirst, iSecond, iThird)
	}
}

func TestAssembleKeepsUnitBytesVerbatim(t *testing.T) {
	// The template literal spans lines, so any reindentation of embedded
	// units would change its runtime value, not just the layout.
	selfInvoking := "(function() {\n  var msg = `hello\nworld`;\n  console.log(msg);\n})();"
	bare := "var greeting = `multi\nline`;\nconsole.log(greeting);"

	out := Assemble("example.com", []snippet.Snippet{
		{Kind: snippet.KindSelfInvoking, Source: selfInvoking},
		{Kind: snippet.KindBare, Source: bare},
	})

	if !strings.Contains(out, selfInvoking) {
		t.Fatalf("self-invoking snippet not byte-identical in bundle:\n%s", out)
	}
	if !strings.Contains(out, bare) {
		t.Fatalf("bare snippet body rewritten in bundle:\n%s", out)
	}
}

func TestAssembleEmptyStillValid(t *testing.T) {
	out := Assemble("example.com", nil)
	if !strings.HasPrefix(out, "(function() {") || !strings.HasSuffix(out, "})();\n") {
		t.Fatalf("empty bundle is not a well-formed wrapper:\n%s", out)
	}
}
