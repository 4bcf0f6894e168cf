package core

import "testing"

func TestEmptyStateIcons(t *testing.T) {
	seen := map[string]bool{}
	for _, icon := range []EmptyStateIcon{EmptyBinder, EmptyCategory, EmptyTransaction} {
		if icon.Glyph() == "" || icon.Text() == "" {
			t.Fatalf("icon %d has no glyph or text", icon)
		}
		seen[icon.Glyph()] = true
	}
	if len(seen) != 3 {
		t.Fatalf("icons should be distinct: %v", seen)
	}
	if EmptyStateIcon(42).Glyph() != EmptyBinder.Glyph() {
		t.Fatalf("unknown icon should fall back to the binder icon")
	}
}

func TestLoaderVariants(t *testing.T) {
	if ParseLoaderVariant("") != LoaderSpinner || ParseLoaderVariant("nope") != LoaderSpinner {
		t.Fatalf("spinner is the default")
	}
	if ParseLoaderVariant("wallet") != LoaderWallet {
		t.Fatalf("wallet not parsed")
	}
	if LoaderHeart.Frame(0) == LoaderHeart.Frame(1) {
		t.Fatalf("frames should alternate")
	}
	if LoaderHeart.Frame(2) != LoaderHeart.Frame(0) || LoaderHeart.Frame(-1) == "" {
		t.Fatalf("frames should wrap")
	}
	if LoaderVariant(99).Frame(0) != LoaderSpinner.Frame(0) {
		t.Fatalf("unknown variant falls back to the spinner")
	}
}
