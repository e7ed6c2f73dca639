// Package script evaluates settings scripts with an embedded ECMAScript
// runtime and exposes script functions as settings callbacks.
package script

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"midi2dmx/internal/logger"
	"midi2dmx/internal/settings"
)

const maxDepth = 32

var ErrTooDeep = errors.New("settings value nested too deeply")

// Engine owns one goja runtime. goja runtimes are not safe for concurrent
// use, so evaluation and every callback invocation hold mu.
type Engine struct {
	mu  sync.Mutex
	vm  *goja.Runtime
	log *logger.Log
}

// New creates an engine with the print global bound to log.
func New(log logger.Logger) *Engine {
	e := &Engine{
		vm:  goja.New(),
		log: log.With(logger.Fields{"module": "script"}),
	}
	_ = e.vm.Set("print", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = a.String()
		}
		e.log.Info(strings.Join(parts, " "))
		return goja.Undefined()
	})
	return e
}

// Eval runs source and converts the resulting document. A global named
// settings wins when the script defines one; otherwise the completion value
// is used, and a bare object or array literal is evaluated as an expression.
func (e *Engine) Eval(name, source string) (settings.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	trimmed := strings.TrimSpace(source)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		trimmed = "(" + strings.TrimRight(trimmed, "; \t\r\n") + "\n)"
	}

	// settings от предыдущего скрипта не должен просочиться.
	if err := e.vm.Set("settings", goja.Undefined()); err != nil {
		return settings.NullValue(), err
	}
	res, err := e.vm.RunScript(name, trimmed)
	if err != nil {
		return settings.NullValue(), fmt.Errorf("script %s: %w", name, err)
	}
	if g := e.vm.Get("settings"); g != nil && !goja.IsUndefined(g) {
		res = g
	}

	v, err := e.convert(res, nil, 0)
	if err != nil {
		return settings.NullValue(), fmt.Errorf("script %s: %w", name, err)
	}
	return v, nil
}

// convert must be called with mu held.
func (e *Engine) convert(v goja.Value, this goja.Value, depth int) (settings.Value, error) {
	if depth > maxDepth {
		return settings.NullValue(), ErrTooDeep
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return settings.NullValue(), nil
	}

	if fn, ok := goja.AssertFunction(v); ok {
		if this == nil {
			this = goja.Undefined()
		}
		return settings.CallbackValue(&callback{engine: e, fn: fn, this: this}), nil
	}

	switch x := v.Export().(type) {
	case string:
		return settings.StringValue(x), nil
	case bool:
		return settings.BoolValue(x), nil
	case int64:
		return settings.NumberValue(float64(x)), nil
	case float64:
		return settings.NumberValue(x), nil
	}

	obj := v.ToObject(e.vm)
	if obj.ClassName() == "Array" {
		n := int(obj.Get("length").ToInteger())
		items := make([]settings.Value, 0, n)
		for i := 0; i < n; i++ {
			item, err := e.convert(obj.Get(strconv.Itoa(i)), obj, depth+1)
			if err != nil {
				return settings.NullValue(), err
			}
			items = append(items, item)
		}
		return settings.ListValue(items...), nil
	}

	m := settings.NewMap()
	for _, key := range obj.Keys() {
		item, err := e.convert(obj.Get(key), obj, depth+1)
		if err != nil {
			return settings.NullValue(), err
		}
		m.Set(key, item)
	}
	return settings.MapValue(m), nil
}

type callback struct {
	engine *Engine
	fn     goja.Callable
	this   goja.Value
}

// Call invokes the script function with this bound to the object that held it.
func (c *callback) Call(args ...interface{}) (settings.Value, error) {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()

	vals := make([]goja.Value, len(args))
	for i, a := range args {
		vals[i] = c.engine.vm.ToValue(a)
	}

	res, err := c.fn(c.this, vals...)
	if err != nil {
		return settings.NullValue(), fmt.Errorf("script callback: %w", err)
	}
	return c.engine.convert(res, nil, 0)
}
