package container

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/km-arc/go-injector/framework/types"
)

// ── Module composition ────────────────────────────────────────────────────────

// RegisterModule registers a module and everything it composes:
//
//  1. the module class itself, unnamed;
//  2. each included module, recursively;
//  3. each included plain class, unnamed;
//  4. each exported method of the module's Go type that returns a value, as
//     a provider named after the method or its declared provider name.
//
// Methods taking parameters must be declared with types.Method or
// types.MethodAs so their dependency names are known.
//
//	var LogModule = types.MustDeclare[*logModule](types.Default, "LogModule",
//	    types.Module(),
//	    types.Includes(Greeter),
//	    types.MethodAs("LogPath", "log_path", "config_dir"))
//
//	c.RegisterModule(LogModule)
//
// A module reached twice through includes is registered once, so include
// cycles terminate.
func (c *Container) RegisterModule(t types.Type) error {
	return c.registerModule(t, make(map[string]bool))
}

func (c *Container) registerModule(t types.Type, visited map[string]bool) error {
	cls := t.Class()
	if cls == nil || !cls.IsModule() {
		return &ModuleDeclarationError{Class: t.String(), Reason: "not declared with types.Module"}
	}
	if visited[t.Key()] {
		return nil
	}
	visited[t.Key()] = true

	if err := c.RegisterClass(t); err != nil {
		return errors.WithMessagef(err, "module %s", t)
	}

	includes := cls.Includes()
	for _, item := range includes {
		if !item.Class().IsModule() {
			continue
		}
		if err := c.registerModule(item, visited); err != nil {
			return err
		}
	}
	for _, item := range includes {
		if item.Class().IsModule() {
			continue
		}
		if err := c.RegisterClass(item); err != nil {
			return errors.WithMessagef(err, "module %s: include %s", t, item)
		}
	}

	if err := c.registerMethods(t); err != nil {
		return err
	}
	c.log.Debug("container: module registered",
		zap.Stringer("module", t),
		zap.Int("includes", len(includes)),
	)
	return nil
}

func (c *Container) registerMethods(t types.Type) error {
	rt, ok := c.catalog.GoType(t)
	if !ok {
		return &InvalidProducerError{Producer: t.String(), Reason: "module has no Go type bound in the catalog"}
	}
	cls := t.Class()

	seen := make(map[string]bool)
	for i := 0; i < rt.NumMethod(); i++ {
		m := rt.Method(i)
		seen[m.Name] = true
		if m.Type.NumOut() == 0 {
			continue
		}

		name, params := m.Name, []string(nil)
		if spec, ok := cls.Method(m.Name); ok {
			params = spec.Params
			if spec.Provides != "" {
				name = spec.Provides
			}
		} else if m.Type.NumIn() > 1 {
			return &InvalidProducerError{
				Producer: fmt.Sprintf("%s.%s", t, m.Name),
				Reason:   "method takes parameters; declare their names with types.Method",
			}
		}

		p, err := NewModuleMethodProvider(t, m, params, c.catalog)
		if err != nil {
			return err
		}
		if err := c.add(methodKey{module: t.Key(), method: m.Name}, p, name); err != nil {
			return err
		}
	}

	for _, spec := range cls.Methods() {
		if !seen[spec.Method] {
			return &InvalidProducerError{
				Producer: fmt.Sprintf("%s.%s", t, spec.Method),
				Reason:   fmt.Sprintf("declared method is not in the method set of %v", rt),
			}
		}
	}
	return nil
}
