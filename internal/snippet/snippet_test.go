package snippet

import "testing"

func TestClassifyExternalTag(t *testing.T) {
	sn := Classify(`<script src="https://cdn.example.com/lib.js" defer></script>`)
	if sn.Kind != KindTag {
		t.Fatalf("expected KindTag, got %s", sn.Kind)
	}
	if !sn.HasSrc {
		t.Fatalf("expected HasSrc for external tag")
	}
	if sn.SrcURL != "https://cdn.example.com/lib.js" {
		t.Fatalf("unexpected src url: %q", sn.SrcURL)
	}
	if !sn.Defer {
		t.Fatalf("expected defer flag")
	}
}

func TestClassifyTagCaseInsensitive(t *testing.T) {
	sn := Classify(`<SCRIPT SRC="https://cdn.example.com/lib.js"></SCRIPT>`)
	if sn.Kind != KindTag {
		t.Fatalf("expected KindTag, got %s", sn.Kind)
	}
	if !sn.HasSrc || sn.SrcURL != "https://cdn.example.com/lib.js" {
		t.Fatalf("unexpected classification: %#v", sn)
	}
	if sn.Defer {
		t.Fatalf("did not expect defer flag")
	}
}

func TestClassifyTagEmptySrc(t *testing.T) {
	// src present but empty stays tag-form with an empty URL; authoring
	// mistakes surface at delivery, not here.
	sn := Classify(`<script src=""></script>`)
	if sn.Kind != KindTag {
		t.Fatalf("expected KindTag, got %s", sn.Kind)
	}
	if !sn.HasSrc {
		t.Fatalf("expected HasSrc for empty src attribute")
	}
	if sn.SrcURL != "" {
		t.Fatalf("expected empty src url, got %q", sn.SrcURL)
	}
}

func TestClassifyInlineTag(t *testing.T) {
	sn := Classify("<script>\nvar a = 1;\nconsole.log(a);\n</script>")
	if sn.Kind != KindTag {
		t.Fatalf("expected KindTag, got %s", sn.Kind)
	}
	if sn.HasSrc {
		t.Fatalf("did not expect HasSrc for inline tag")
	}
	if sn.Inline != "var a = 1;\nconsole.log(a);" {
		t.Fatalf("unexpected inline body: %q", sn.Inline)
	}
}

func TestClassifyTagWebsiteID(t *testing.T) {
	sn := Classify(`<script src="https://analytics.example.com/script.js" data-website-id="abc-123"></script>`)
	if sn.WebsiteID != "abc-123" {
		t.Fatalf("unexpected website id: %q", sn.WebsiteID)
	}
}

func TestClassifyDeferAnywhereInText(t *testing.T) {
	// Any literal "defer" in the snippet text flags the load, matching the
	// original string-sniffing behavior.
	sn := Classify(`<script src="https://x.example.com/a.js" data-note="defer-me"></script>`)
	if !sn.Defer {
		t.Fatalf("expected defer flag from literal substring")
	}
}

func TestClassifySelfInvoking(t *testing.T) {
	for _, src := range []string{
		"(function() { console.log('hi'); })();",
		"(function() { console.log('hi'); })()",
		"(function() {\n  var started = Date.now();\n  console.log(started);\n})();",
	} {
		sn := Classify(src)
		if sn.Kind != KindSelfInvoking {
			t.Fatalf("expected KindSelfInvoking for %q, got %s", src, sn.Kind)
		}
		if sn.Source != src {
			t.Fatalf("self-invoking source must survive verbatim, got %q", sn.Source)
		}
	}
}

func TestClassifyBare(t *testing.T) {
	for _, src := range []string{
		"console.log('hello');",
		"var analytics = true;",
		"function named() {}",
		"(function() { trailing text",
	} {
		sn := Classify(src)
		if sn.Kind != KindBare {
			t.Fatalf("expected KindBare for %q, got %s", src, sn.Kind)
		}
	}
}

func TestClassifyTrimsWhitespace(t *testing.T) {
	sn := Classify("\n\t  console.log('x');  \n")
	if sn.Kind != KindBare {
		t.Fatalf("expected KindBare, got %s", sn.Kind)
	}
	if sn.Source != "console.log('x');" {
		t.Fatalf("expected trimmed source, got %q", sn.Source)
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindTag:          "tag",
		KindSelfInvoking: "self-invoking",
		KindBare:         "bare",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
