package discovery

import (
	"context"
	"fmt"

	starlarkjson "go.starlark.net/lib/json"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// OptionStore is the scoped key-value store exposed to instructions as
// the options builtin. Values are stored as JSON.
type OptionStore interface {
	Get(ctx context.Context, scope, name string) ([]byte, bool, error)
	Put(ctx context.Context, scope, name string, value []byte) error
	Delete(ctx context.Context, scope, name string) error
}

// predeclared returns the environment every source unit executes in:
//
//	options.get(name, default=None)
//	options.set(name, value)
//	options.delete(name)
//	log(msg)
//	json.encode / json.decode / json.indent
func (l *Loader) predeclared() starlark.StringDict {
	return starlark.StringDict{
		"json": starlarkjson.Module,
		"log":  starlark.NewBuiltin("log", l.logBuiltin),
		"options": &starlarkstruct.Module{
			Name: "options",
			Members: starlark.StringDict{
				"get":    starlark.NewBuiltin("options.get", l.optionGet),
				"set":    starlark.NewBuiltin("options.set", l.optionSet),
				"delete": starlark.NewBuiltin("options.delete", l.optionDelete),
			},
		},
	}
}

func (l *Loader) logBuiltin(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var msg string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &msg); err != nil {
		return nil, err
	}
	if l.opts.Log != nil {
		l.opts.Log(msg)
	}
	return starlark.None, nil
}

func (l *Loader) optionGet(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var def starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "default?", &def); err != nil {
		return nil, err
	}
	if l.opts.Options == nil {
		return nil, fmt.Errorf("%s: no option store configured", b.Name())
	}

	raw, found, err := l.opts.Options.Get(threadContext(thread), l.opts.Scope, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	if !found {
		return def, nil
	}
	return starlark.Call(thread, starlarkjson.Module.Members["decode"], starlark.Tuple{starlark.String(raw)}, nil)
}

func (l *Loader) optionSet(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var value starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "value", &value); err != nil {
		return nil, err
	}
	if l.opts.Options == nil {
		return nil, fmt.Errorf("%s: no option store configured", b.Name())
	}

	encoded, err := starlark.Call(thread, starlarkjson.Module.Members["encode"], starlark.Tuple{value}, nil)
	if err != nil {
		return nil, err
	}
	s, _ := starlark.AsString(encoded)
	if err := l.opts.Options.Put(threadContext(thread), l.opts.Scope, name, []byte(s)); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, nil
}

func (l *Loader) optionDelete(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
		return nil, err
	}
	if l.opts.Options == nil {
		return nil, fmt.Errorf("%s: no option store configured", b.Name())
	}
	if err := l.opts.Options.Delete(threadContext(thread), l.opts.Scope, name); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, nil
}
