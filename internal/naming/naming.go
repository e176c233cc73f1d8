// Package naming checks project and app names against the Python
// identifier grammar and proposes sanitized alternatives.
package naming

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fpp-125/djstarter/internal/pipeline"
	"github.com/fpp-125/djstarter/internal/prompt"
)

var (
	identRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	invalidRe = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

func IsIdentifier(name string) bool {
	return identRe.MatchString(name)
}

// Suggest replaces every non-identifier character with an underscore and
// trims leading and trailing underscores. The result may still be invalid,
// for example when it starts with a digit.
func Suggest(name string) string {
	return strings.Trim(invalidRe.ReplaceAllString(strings.TrimSpace(name), "_"), "_")
}

// Resolve returns candidate when it is a valid identifier. Otherwise it
// offers the sanitized suggestion and, when declined, asks for a new name
// until one is valid or the prompter fails.
func Resolve(p prompt.Prompter, subject, candidate string) (string, error) {
	name := strings.TrimSpace(candidate)
	for {
		if name == "" {
			answer, err := p.Ask(subject, "")
			if err != nil {
				return "", fmt.Errorf("%w: %w", &pipeline.ValidationError{Subject: subject, Reason: "is required"}, err)
			}
			name = strings.TrimSpace(answer)
			if name == "" {
				continue
			}
		}
		if IsIdentifier(name) {
			return name, nil
		}
		invalid := &pipeline.ValidationError{Subject: subject, Reason: fmt.Sprintf("%q is not a valid Python identifier", name)}
		if s := Suggest(name); IsIdentifier(s) {
			ok, err := p.Confirm(fmt.Sprintf("%q is not a valid Python identifier. Use %q instead?", name, s), true)
			if err != nil {
				return "", fmt.Errorf("%w: %w", invalid, err)
			}
			if ok {
				return s, nil
			}
		}
		answer, err := p.Ask(subject, "")
		if err != nil {
			return "", fmt.Errorf("%w: %w", invalid, err)
		}
		name = strings.TrimSpace(answer)
	}
}

// ResolveAll resolves each candidate in order and drops duplicates.
func ResolveAll(p prompt.Prompter, subject string, candidates []string) ([]string, error) {
	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		name, err := Resolve(p, subject, c)
		if err != nil {
			return nil, err
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}
