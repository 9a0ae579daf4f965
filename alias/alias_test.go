package alias

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testResolver() *Resolver {
	return NewResolver([]Group{
		{"arch", "a", "a-", "a_"},
		{"Skwid", "squid"},
		{"xyz"},
	})
}

func TestResolveCaseInsensitive(t *testing.T) {
	r := testResolver()
	want := Group{"arch", "a", "a-", "a_"}
	for _, name := range []string{"arch", "ARCH", "Arch", "a-", "A_", " a "} {
		got, ok := r.Resolve(name)
		if !ok {
			t.Fatalf("Resolve(%q) found nothing", name)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Resolve(%q) mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	r := testResolver()
	for _, name := range []string{"bob", "", "arc", "archie"} {
		if g, ok := r.Resolve(name); ok {
			t.Errorf("Resolve(%q) = %v, want no group", name, g)
		}
	}
	var nilResolver *Resolver
	if _, ok := nilResolver.Resolve("arch"); ok {
		t.Error("nil resolver resolved a name")
	}
}

func TestResolveFirstGroupWins(t *testing.T) {
	r := NewResolver([]Group{{"dup", "one"}, {"dup", "two"}})
	got, ok := r.Resolve("DUP")
	if !ok || got[1] != "one" {
		t.Fatalf("Resolve(dup) = %v, want first group", got)
	}
}

func TestMangle(t *testing.T) {
	r := testResolver()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single alias", "arch played zelda", "árch played zelda"},
		{"uppercase", "SKWID is live", "SKWÍD is live"},
		{"punctuation boundary", "thanks, squid!", "thanks, sqúid!"},
		{"nick punctuation alias", "a- and a_ played", "á- and á_ played"},
		{"substring untouched", "archer and squidward", "archer and squidward"},
		{"first mappable letter", "xyz streamed", "xýz streamed"},
		{"every occurrence", "arch, arch", "árch, árch"},
		{"pipe joins a nick", "a|afk and [a] left", "a|afk and [a] left"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Mangle(tt.in); got != tt.want {
				t.Errorf("Mangle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMangleWordWithoutMapping(t *testing.T) {
	r := NewResolver([]Group{{"zzz", "b-b"}})
	if got := r.Mangle("zzz and b-b"); got != "zzz and b-b" {
		t.Errorf("Mangle() = %q, want unchanged", got)
	}
}

func TestMangleDoesNotAffectResolve(t *testing.T) {
	r := testResolver()
	_ = r.Mangle("arch")
	if _, ok := r.Resolve("arch"); !ok {
		t.Fatal("Resolve(arch) failed after Mangle")
	}
}
