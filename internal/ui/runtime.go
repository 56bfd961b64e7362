// internal/ui/runtime.go
//
// Minimal component runtime with hook slots.
// Responsibilities:
//   - Component registry: render functions registered once by name.
//   - Render protocol: a stack of render frames so hooks resolve to the instance
//     currently rendering, including nested component renders.
//   - Re-render scheduling: state setters queue the owning instance; queued
//     instances are flushed once per scheduler tick into their containers.
//
// Notes:
//   - A Runtime is not safe for concurrent use. Drive it from one goroutine
//     (the activity package uses a per-session event loop).
//   - An instance is identified by component name plus an optional key.

package ui

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

var (
	// ErrUnknownComponent is returned when rendering a name that was never registered.
	ErrUnknownComponent = errors.New("ui: unknown component")
	// ErrDuplicateComponent is returned when a name is registered twice.
	ErrDuplicateComponent = errors.New("ui: component already registered")
	// ErrPropsType is raised when a component receives props of the wrong type.
	ErrPropsType = errors.New("ui: props type mismatch")
)

// RenderFunc produces a tree for the given props.
type RenderFunc func(c *Ctx, props any) *Node

// Container receives the markup of a mounted instance on every (re-)render.
type Container interface {
	Replace(markup string) error
}

// Scheduler runs flush at some later point (next tick, next frame, on demand).
type Scheduler interface {
	Schedule(flush func())
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(flush func())

// Schedule calls f(flush).
func (f SchedulerFunc) Schedule(flush func()) { f(flush) }

type component struct {
	name      string
	render    RenderFunc
	instances map[string]*instance
}

type instance struct {
	comp      *component
	key       string
	hooks     []*hookSlot
	props     any
	container Container
	mounted   bool
	rendered  bool
	parent    *instance
}

func (i *instance) id() string {
	if i.key == "" {
		return i.comp.name
	}
	return i.comp.name + "#" + i.key
}

// mountRoot returns the closest mounted instance at or above i.
func (i *instance) mountRoot() *instance {
	for cur := i; cur != nil; cur = cur.parent {
		if cur.mounted && cur.container != nil {
			return cur
		}
	}
	return nil
}

// Runtime owns the registry, hook state, and the render queue.
type Runtime struct {
	components map[string]*component
	stack      []*Ctx
	queue      []*instance
	queued     map[*instance]bool
	scheduled  bool
	sched      Scheduler
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithScheduler sets how flushes are scheduled.
func WithScheduler(s Scheduler) Option {
	return func(rt *Runtime) { rt.sched = s }
}

// New constructs a Runtime. Without WithScheduler a ManualScheduler is used
// and Flush must be driven by the caller.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		components: make(map[string]*component),
		queued:     make(map[*instance]bool),
	}
	for _, o := range opts {
		o(rt)
	}
	if rt.sched == nil {
		rt.sched = &ManualScheduler{}
	}
	return rt
}

// Register adds a typed render function under name.
func Register[P any](rt *Runtime, name string, fn func(c *Ctx, props P) *Node) error {
	return rt.register(name, func(c *Ctx, props any) *Node {
		p, ok := props.(P)
		if !ok && props != nil {
			panic(fmt.Errorf("%w: %s wants %T, got %T", ErrPropsType, name, p, props))
		}
		return fn(c, p)
	})
}

// MustRegister is Register that panics on error; used for static component sets.
func MustRegister[P any](rt *Runtime, name string, fn func(c *Ctx, props P) *Node) {
	if err := Register(rt, name, fn); err != nil {
		panic(err)
	}
}

func (rt *Runtime) register(name string, fn RenderFunc) error {
	if _, ok := rt.components[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateComponent, name)
	}
	rt.components[name] = &component{name: name, render: fn, instances: make(map[string]*instance)}
	return nil
}

// Has reports whether name is registered.
func (rt *Runtime) Has(name string) bool {
	_, ok := rt.components[name]
	return ok
}

func (rt *Runtime) lookup(name, key string) (*instance, error) {
	comp, ok := rt.components[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, name)
	}
	inst, ok := comp.instances[key]
	if !ok {
		inst = &instance{comp: comp, key: key}
		comp.instances[key] = inst
	}
	return inst, nil
}

// Render invokes the named component with props and returns its tree. Panics
// raised by render functions (hook misuse, bad props) are returned as errors.
func (rt *Runtime) Render(name string, props any) (*Node, error) {
	inst, err := rt.lookup(name, "")
	if err != nil {
		return nil, err
	}
	return rt.renderTop(inst, props)
}

// RenderString is Render followed by serialization.
func (rt *Runtime) RenderString(name string, props any) (string, error) {
	n, err := rt.Render(name, props)
	if err != nil {
		return "", err
	}
	return n.Markup()
}

// RenderInto renders the component and writes its markup into container. The
// instance remembers the container; scheduled re-renders are written there.
// A failing render writes a placeholder instead and the error is returned.
func (rt *Runtime) RenderInto(name string, props any, container Container) error {
	inst, err := rt.lookup(name, "")
	if err != nil {
		log.Error().Err(err).Str("component", name).Msg("render into container")
		_ = container.Replace(Placeholder("render-error", name).String())
		return err
	}
	inst.container = container
	inst.mounted = true
	return rt.renderMounted(inst, props)
}

func (rt *Runtime) renderMounted(inst *instance, props any) error {
	var markup string
	n, err := rt.renderTop(inst, props)
	if err == nil {
		if markup, err = n.Markup(); err != nil {
			err = fmt.Errorf("serialize %s: %w", inst.id(), err)
		}
	}
	if err != nil {
		log.Error().Err(err).Str("component", inst.id()).Msg("render failed")
		markup = Placeholder("render-error", inst.id()).String()
	}
	if werr := inst.container.Replace(markup); werr != nil {
		log.Warn().Err(werr).Str("component", inst.id()).Msg("container write")
		if err == nil {
			err = werr
		}
	}
	return err
}

func (rt *Runtime) renderTop(inst *instance, props any) (n *Node, err error) {
	depth := len(rt.stack)
	defer func() {
		if r := recover(); r != nil {
			rt.stack = rt.stack[:depth]
			n = nil
			if e, ok := r.(error); ok {
				err = fmt.Errorf("render %s: %w", inst.id(), e)
				return
			}
			err = fmt.Errorf("render %s: %v", inst.id(), r)
		}
	}()
	inst.parent = nil
	return rt.invoke(inst, props), nil
}

// invoke runs one render pass for inst and then its effects.
func (rt *Runtime) invoke(inst *instance, props any) *Node {
	c := &Ctx{rt: rt, inst: inst}
	rt.stack = append(rt.stack, c)
	inst.props = props
	n := inst.comp.render(c, props)
	c.finish()
	rt.stack = rt.stack[:len(rt.stack)-1]
	c.runEffects()
	return n
}

func (rt *Runtime) current() *Ctx {
	if len(rt.stack) == 0 {
		return nil
	}
	return rt.stack[len(rt.stack)-1]
}

// schedule queues inst for re-render and arranges one flush per batch.
func (rt *Runtime) schedule(inst *instance) {
	if !rt.queued[inst] {
		rt.queued[inst] = true
		rt.queue = append(rt.queue, inst)
	}
	if rt.scheduled {
		return
	}
	rt.scheduled = true
	rt.sched.Schedule(func() { rt.Flush() })
}

// Pending reports how many instances are waiting for a flush.
func (rt *Runtime) Pending() int { return len(rt.queue) }

// Flush re-renders every queued instance's mounted root once, with its last
// props, and returns the number of containers written.
func (rt *Runtime) Flush() int {
	queue := rt.queue
	rt.queue = nil
	rt.queued = make(map[*instance]bool)
	rt.scheduled = false

	done := make(map[*instance]bool, len(queue))
	written := 0
	for _, inst := range queue {
		root := inst.mountRoot()
		if root == nil || done[root] {
			continue
		}
		done[root] = true
		_ = rt.renderMounted(root, root.props)
		written++
	}
	return written
}

// Unmount tears down every instance of name and every child instance last
// rendered beneath one of them: effect cleanups run (children first), hooks
// are cleared, and the instances leave the render queue.
func (rt *Runtime) Unmount(name string) {
	comp, ok := rt.components[name]
	if !ok {
		return
	}
	roots := make(map[*instance]bool, len(comp.instances))
	for _, inst := range comp.instances {
		roots[inst] = true
	}
	var children []*instance
	for _, other := range rt.components {
		if other == comp {
			continue
		}
		for _, inst := range other.instances {
			if underAny(inst, roots) {
				children = append(children, inst)
			}
		}
	}
	gone := make(map[*instance]bool, len(roots)+len(children))
	for _, inst := range children {
		rt.teardown(inst)
		gone[inst] = true
	}
	for inst := range roots {
		rt.teardown(inst)
		gone[inst] = true
	}
	kept := rt.queue[:0]
	for _, inst := range rt.queue {
		if !gone[inst] {
			kept = append(kept, inst)
		}
	}
	rt.queue = kept
}

// underAny reports whether one of roots is a strict ancestor of inst.
func underAny(inst *instance, roots map[*instance]bool) bool {
	for cur := inst.parent; cur != nil; cur = cur.parent {
		if roots[cur] {
			return true
		}
	}
	return false
}

func (rt *Runtime) teardown(inst *instance) {
	for _, h := range inst.hooks {
		if h.kind == kindEffect && h.cleanup != nil {
			h.cleanup()
			h.cleanup = nil
		}
	}
	inst.hooks = nil
	inst.mounted = false
	inst.rendered = false
	inst.container = nil
	inst.parent = nil
	delete(rt.queued, inst)
	delete(inst.comp.instances, inst.key)
}

// ManualScheduler records flushes until Run is called. Useful in tests and for
// callers that own their own tick.
type ManualScheduler struct {
	pending []func()
}

// Schedule records flush.
func (m *ManualScheduler) Schedule(flush func()) { m.pending = append(m.pending, flush) }

// Len reports the number of scheduled flushes.
func (m *ManualScheduler) Len() int { return len(m.pending) }

// Run executes the scheduled flushes in order.
func (m *ManualScheduler) Run() {
	for len(m.pending) > 0 {
		fn := m.pending[0]
		m.pending = m.pending[1:]
		fn()
	}
}
