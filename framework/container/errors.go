package container

import (
	"fmt"
	"strings"

	"github.com/km-arc/go-injector/framework/types"
)

// Errors shared with the type model.
type (
	UnboundTypeError       = types.UnboundTypeError
	ModuleDeclarationError = types.ModuleDeclarationError
	InvalidIncludeError    = types.InvalidIncludeError
	UndeclaredTypeError    = types.UndeclaredTypeError
)

// MissingDependencyError reports that no registered provider satisfies a
// request.
type MissingDependencyError struct {
	Type types.Type
	Name string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("container: missing dependency %s", describe(e.Type, e.Name))
}

// Candidate is one provider found while resolving.
type Candidate struct {
	Type types.Type
	Name string
}

func (c Candidate) String() string { return describe(c.Type, c.Name) }

// AmbiguousDependencyError reports several providers satisfying a request
// that the name did not narrow down.
type AmbiguousDependencyError struct {
	Type       types.Type
	Name       string
	Candidates []Candidate
}

func (e *AmbiguousDependencyError) Error() string {
	parts := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		parts[i] = c.String()
	}
	return fmt.Sprintf("container: ambiguous dependency %s, candidates: %s",
		describe(e.Type, e.Name), strings.Join(parts, ", "))
}

// CyclicDependencyError reports a provider that, directly or not, needs its
// own value to be built.
type CyclicDependencyError struct {
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	return "container: dependency cycle: " + strings.Join(e.Path, " -> ")
}

// ProviderError wraps a failure of the producer itself, as opposed to a
// failure to resolve one of its dependencies.
type ProviderError struct {
	Type types.Type
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("container: provider for %s failed: %v", e.Type, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// InvalidProducerError reports a producer whose shape cannot be registered.
type InvalidProducerError struct {
	Producer string
	Reason   string
}

func (e *InvalidProducerError) Error() string {
	return fmt.Sprintf("container: cannot register %s: %s", e.Producer, e.Reason)
}

func describe(t types.Type, name string) string {
	if name == "" {
		return t.String()
	}
	return fmt.Sprintf("%s (name=%q)", t, name)
}
