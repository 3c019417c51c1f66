package mention

import (
	"context"
	"testing"

	"github.com/halcyonlabs/personagate/internal/personality"
)

func testRegistry() *personality.Registry {
	return personality.NewRegistry([]personality.Personality{
		{ID: "p-bambi", Name: "bambi", Aliases: []string{"bam"}},
		{ID: "p-bambi-prime", Name: "bambi prime"},
		{ID: "p-sage", Name: "sage"},
		{ID: "p-iron-wolf", Name: "iron wolf king"},
	})
}

func TestResolve_LongestMatchWins(t *testing.T) {
	r := New("&", 0, testRegistry())

	m := r.Resolve(context.Background(), "u1", "&bambi prime hello")
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.Personality.ID != "p-bambi-prime" {
		t.Errorf("resolved %s, want p-bambi-prime", m.Personality.ID)
	}
	if m.Words != 2 || m.Text != "bambi prime" {
		t.Errorf("match = %+v, want 2 words %q", m, "bambi prime")
	}
}

func TestResolve_Table(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string // personality ID, "" = no match
	}{
		{"single word", "hey &sage what's up", "p-sage"},
		{"single word alias", "&bam hello", "p-bambi"},
		{"three word name", "&iron wolf king attack", "p-iron-wolf"},
		{"no sigil", "bambi prime hello", ""},
		{"unknown name", "&nobody home", ""},
		{"sigil mid-word ignored", "AT&T is down", ""},
		{"sentence punctuation stops the run", "&sage. bambi prime", "p-sage"},
		{"trailing comma stripped", "hello &bambi, how are you", "p-bambi"},
		{"newline stops the run", "&bambi\nprime", "p-bambi"},
		{"second sigil stops the run", "&bambi &sage", "p-bambi"},
		{"empty text", "", ""},
	}

	r := New("&", 0, testRegistry())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := r.Resolve(context.Background(), "u1", tt.text)
			got := ""
			if m != nil {
				got = m.Personality.ID
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestResolve_TieBreakFirstFound(t *testing.T) {
	// Two single-word matches: the first occurrence wins.
	r := New("&", 0, testRegistry())
	m := r.Resolve(context.Background(), "u1", "&sage meet &bambi")
	if m == nil || m.Personality.ID != "p-sage" {
		t.Errorf("match = %+v, want first-found p-sage", m)
	}
}

func TestResolve_UserAliasOverridesShared(t *testing.T) {
	reg := testRegistry()
	reg.SetUserAlias("u1", "bam", &personality.Personality{ID: "p-sage", Name: "sage"})

	r := New("&", 0, reg)
	m := r.Resolve(context.Background(), "u1", "&bam hi")
	if m == nil || m.Personality.ID != "p-sage" {
		t.Errorf("match = %+v, want user alias p-sage", m)
	}

	// Another identity still sees the shared alias.
	m = r.Resolve(context.Background(), "u2", "&bam hi")
	if m == nil || m.Personality.ID != "p-bambi" {
		t.Errorf("match = %+v, want shared alias p-bambi", m)
	}
}

func TestResolve_CustomSigil(t *testing.T) {
	r := New("!", 0, testRegistry())
	m := r.Resolve(context.Background(), "u1", "!bambi prime hello")
	if m == nil || m.Personality.ID != "p-bambi-prime" {
		t.Errorf("match = %+v, want p-bambi-prime", m)
	}
}

func TestResolve_MaxWordsCap(t *testing.T) {
	reg := personality.NewRegistry([]personality.Personality{
		{ID: "p-long", Name: "one two three four five"},
	})
	r := New("&", 4, reg)
	if m := r.Resolve(context.Background(), "u1", "&one two three four five"); m != nil {
		t.Errorf("match = %+v, want nil beyond the word cap", m)
	}
}
