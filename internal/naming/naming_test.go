package naming

import (
	"errors"
	"testing"

	"github.com/fpp-125/djstarter/internal/pipeline"
	"github.com/fpp-125/djstarter/internal/prompt"
)

type scripted struct {
	answers  []string
	confirms []bool
	asked    int
}

func (s *scripted) Ask(string, string) (string, error) {
	if len(s.answers) == 0 {
		return "", prompt.ErrNonInteractive
	}
	s.asked++
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

func (s *scripted) Confirm(string, bool) (bool, error) {
	if len(s.confirms) == 0 {
		return false, prompt.ErrNonInteractive
	}
	c := s.confirms[0]
	s.confirms = s.confirms[1:]
	return c, nil
}

func TestIsIdentifier(t *testing.T) {
	cases := map[string]bool{
		"mysite":   true,
		"_private": true,
		"Shop2":    true,
		"my-site":  false,
		"2shop":    false,
		"":         false,
		"a b":      false,
	}
	for in, want := range cases {
		if got := IsIdentifier(in); got != want {
			t.Fatalf("IsIdentifier(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSuggest(t *testing.T) {
	cases := map[string]string{
		"my-site":     "my_site",
		"-blog-":      "blog",
		"my cool.app": "my_cool_app",
		"2shop":       "2shop",
	}
	for in, want := range cases {
		if got := Suggest(in); got != want {
			t.Fatalf("Suggest(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveAcceptsValidNameUnchanged(t *testing.T) {
	p := &scripted{}
	got, err := Resolve(p, "project name", "mysite")
	if err != nil || got != "mysite" {
		t.Fatalf("Resolve() = %q, %v", got, err)
	}
	if p.asked != 0 {
		t.Fatal("valid names must not prompt")
	}
}

func TestResolveProceedsOnlyOnAcceptance(t *testing.T) {
	got, err := Resolve(&scripted{confirms: []bool{true}}, "project name", "my-site")
	if err != nil || got != "my_site" {
		t.Fatalf("accepted suggestion: Resolve() = %q, %v", got, err)
	}

	got, err = Resolve(&scripted{confirms: []bool{false}, answers: []string{"other"}}, "project name", "my-site")
	if err != nil || got != "other" {
		t.Fatalf("declined suggestion: Resolve() = %q, %v", got, err)
	}
}

func TestResolveSkipsInvalidSuggestion(t *testing.T) {
	p := &scripted{answers: []string{"shop"}}
	got, err := Resolve(p, "app name", "2-shop")
	if err != nil || got != "shop" {
		t.Fatalf("Resolve() = %q, %v", got, err)
	}
}

func TestResolveNonInteractive(t *testing.T) {
	_, err := Resolve(prompt.Disabled{}, "project name", "my-site")
	var ve *pipeline.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !errors.Is(err, prompt.ErrNonInteractive) {
		t.Fatalf("expected ErrNonInteractive in chain, got %v", err)
	}
}

func TestResolveAllDropsDuplicates(t *testing.T) {
	got, err := ResolveAll(&scripted{confirms: []bool{true}}, "app name", []string{"blog", "shop", "blog", "shop!"})
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}
	if len(got) != 2 || got[0] != "blog" || got[1] != "shop" {
		t.Fatalf("ResolveAll() = %v", got)
	}
}
