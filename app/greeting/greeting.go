// Package greeting is the demo module served by main: two named greeters, a
// shared counter and the log path derived from CONFIG_DIR.
package greeting

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/km-arc/go-injector/framework/types"
)

// Greeter greets someone by name.
type Greeter interface {
	Greet(name string) string
}

// Formal greets with a configurable prefix.
type Formal struct {
	Prefix string
}

func (f *Formal) Greet(name string) string { return fmt.Sprintf("%s, %s.", f.Prefix, name) }

// Casual greets informally.
type Casual struct{}

func (*Casual) Greet(name string) string { return "hey " + strings.ToLower(name) + "!" }

// Counter counts greetings across requests.
type Counter struct {
	n atomic.Int64
}

// Inc adds one and returns the new total.
func (c *Counter) Inc() int64 { return c.n.Add(1) }

// ── Declarations ──────────────────────────────────────────────────────────────

var (
	GreeterType = types.MustDeclare[Greeter](types.Default, "Greeter")
	FormalType  = types.MustDeclare[*Formal](types.Default, "FormalGreeter", types.Extends(GreeterType))
	CasualType  = types.MustDeclare[*Casual](types.Default, "CasualGreeter", types.Extends(GreeterType))
	CounterType = types.MustDeclare[*Counter](types.Default, "GreetingCounter")

	// Module provides:
	//   - *Counter, unnamed
	//   - "formal" and "casual" Greeters
	//   - "greeting_prefix" string
	//   - "log_path" string, needs "config_dir"
	Module = types.MustDeclare[*module](types.Default, "GreetingModule",
		types.Module(),
		types.Includes(CounterType),
		types.MethodAs("Formal", "formal", "greeting_prefix"),
		types.MethodAs("Casual", "casual"),
		types.MethodAs("Prefix", "greeting_prefix"),
		types.MethodAs("LogPath", "log_path", "config_dir"),
	)
)

type module struct{}

func (*module) Formal(prefix string) *Formal { return &Formal{Prefix: prefix} }

func (*module) Casual() *Casual { return &Casual{} }

func (*module) Prefix() string { return "Good day" }

func (*module) LogPath(dir string) string { return strings.TrimRight(dir, "/") + "/app.log" }
