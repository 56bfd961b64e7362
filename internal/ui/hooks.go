// internal/ui/hooks.go
//
// Hook slots: state, effects, and refs.
// Responsibilities:
//   - Resolve each hook call to a slot by its position in the render.
//   - State setters compare values and queue a re-render on change.
//   - Effects run after the render that declared them, in declaration order;
//     their cleanup runs before the next run and on unmount.
//
// Hooks must be called unconditionally and in the same order on every render
// of an instance. Violations panic with *HookError; Runtime.Render converts
// the panic into an error.

package ui

import (
	"fmt"
	"reflect"
)

type hookKind int

const (
	kindState hookKind = iota + 1
	kindEffect
	kindRef
)

func (k hookKind) String() string {
	switch k {
	case kindState:
		return "state"
	case kindEffect:
		return "effect"
	case kindRef:
		return "ref"
	}
	return "unknown"
}

type hookSlot struct {
	kind hookKind
	init bool

	// state / ref
	value any

	// effect
	deps    []any
	cleanup func()
}

// HookError reports misuse of the hook protocol.
type HookError struct {
	Component string
	Index     int
	Reason    string
}

func (e *HookError) Error() string {
	if e.Component == "" {
		return "ui: hook " + e.Reason
	}
	return fmt.Sprintf("ui: %s hook %d: %s", e.Component, e.Index, e.Reason)
}

// Ctx is the render context handed to a component's render function. It is
// only valid for the duration of that call.
type Ctx struct {
	rt      *Runtime
	inst    *instance
	idx     int
	done    bool
	effects []*pendingEffect
}

type pendingEffect struct {
	slot *hookSlot
	fn   func() func()
	deps []any
}

// Key returns the instance key ("" for unkeyed instances).
func (c *Ctx) Key() string { return c.inst.key }

// Render renders a child component inside the current render. The child is an
// instance of its own with its own hooks; when its state changes the nearest
// mounted ancestor is re-rendered.
func (c *Ctx) Render(name string, props any) *Node {
	return c.RenderKeyed(name, "", props)
}

// RenderKeyed is Render for one of several sibling instances of the same
// component, distinguished by key.
func (c *Ctx) RenderKeyed(name, key string, props any) *Node {
	c.check("render")
	inst, err := c.rt.lookup(name, key)
	if err != nil {
		panic(err)
	}
	if inst == c.inst {
		panic(&HookError{Component: inst.id(), Index: c.idx, Reason: "component renders itself"})
	}
	inst.parent = c.inst
	return c.rt.invoke(inst, props)
}

func (c *Ctx) check(what string) {
	if c == nil || c.done {
		panic(&HookError{Reason: what + " called outside of a render"})
	}
	if c.rt.current() != c {
		panic(&HookError{Component: c.inst.id(), Index: c.idx, Reason: what + " called from a stale render context"})
	}
}

// slot returns the next slot, creating it on the first render.
func (c *Ctx) slot(kind hookKind) *hookSlot {
	c.check(kind.String())
	inst := c.inst
	i := c.idx
	c.idx++
	if i < len(inst.hooks) {
		s := inst.hooks[i]
		if s.kind != kind {
			panic(&HookError{
				Component: inst.id(),
				Index:     i,
				Reason:    fmt.Sprintf("expected %s hook, found %s (hooks called conditionally?)", s.kind, kind),
			})
		}
		return s
	}
	if inst.rendered {
		panic(&HookError{Component: inst.id(), Index: i, Reason: "more hooks than the previous render"})
	}
	s := &hookSlot{kind: kind}
	inst.hooks = append(inst.hooks, s)
	return s
}

func (c *Ctx) finish() {
	c.done = true
	inst := c.inst
	if inst.rendered && c.idx != len(inst.hooks) {
		panic(&HookError{
			Component: inst.id(),
			Index:     c.idx,
			Reason:    fmt.Sprintf("rendered %d hooks, previous render had %d", c.idx, len(inst.hooks)),
		})
	}
	inst.rendered = true
}

func (c *Ctx) runEffects() {
	for _, e := range c.effects {
		if e.slot.cleanup != nil {
			e.slot.cleanup()
			e.slot.cleanup = nil
		}
		// deps are committed only once the effect has run, so a render that
		// panics after declaring it does not suppress it next time
		e.slot.deps, e.slot.init = e.deps, true
		e.slot.cleanup = e.fn()
	}
	c.effects = nil
}

// UseState returns the current value and a setter. The initial value is used
// on the first render only. Setting an equal value does not re-render.
func UseState[T comparable](c *Ctx, initial T) (T, func(T)) {
	s := c.slot(kindState)
	if !s.init {
		s.value, s.init = initial, true
	}
	rt, inst := c.rt, c.inst
	set := func(v T) {
		if cur, ok := s.value.(T); ok && cur == v {
			return
		}
		s.value = v
		rt.schedule(inst)
	}
	cur, _ := s.value.(T)
	return cur, set
}

// UseReducer is UseState with an updater function, for values that are not
// comparable or derived from the previous value.
func UseReducer[T any](c *Ctx, initial T) (T, func(func(T) T)) {
	s := c.slot(kindState)
	if !s.init {
		s.value, s.init = &initial, true
	}
	rt, inst := c.rt, c.inst
	ptr := s.value.(*T)
	update := func(fn func(T) T) {
		*ptr = fn(*ptr)
		rt.schedule(inst)
	}
	return *ptr, update
}

// UseEffect declares a side effect. With nil deps it runs after every render;
// otherwise only on the first render and when any dep changed. fn may return
// a cleanup.
func UseEffect(c *Ctx, fn func() func(), deps []any) {
	s := c.slot(kindEffect)
	if deps == nil || !s.init || depsChanged(s.deps, deps) {
		c.effects = append(c.effects, &pendingEffect{slot: s, fn: fn, deps: deps})
	}
}

// Deps is a readable way to build a dependency list; Deps() is an empty list
// (run once).
func Deps(vals ...any) []any {
	if vals == nil {
		return []any{}
	}
	return vals
}

// Ref is a mutable box whose identity is stable across renders.
type Ref[T any] struct {
	Current T
}

// UseRef returns the same *Ref on every render of the instance.
func UseRef[T any](c *Ctx, initial T) *Ref[T] {
	s := c.slot(kindRef)
	if !s.init {
		s.value, s.init = &Ref[T]{Current: initial}, true
	}
	return s.value.(*Ref[T])
}

func depsChanged(prev, next []any) bool {
	if len(prev) != len(next) {
		return true
	}
	for i := range prev {
		if !sameDep(prev[i], next[i]) {
			return true
		}
	}
	return false
}

// sameDep compares comparable values with ==, slices and maps by identity,
// and treats functions as always changed.
func sameDep(a, b any) (same bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Func:
		return false
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Map:
		return va.Pointer() == vb.Pointer()
	}
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
