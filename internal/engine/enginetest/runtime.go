// Package enginetest provides an in-memory runtime, translator and frontend for
// exercising the engine without a device or an external compiler.
//
// Sources are line based. Each non-blank line not starting with ';' is a form:
//
//	def <Name> [arity=<n>] [ret=<value>] [throw=<message>]
//	call <Name>
//	throw <message>
//	read-error <message>
//
// A def line is the class bytecode. Translating it prefixes NativePrefix.
package enginetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/core/ports"
	"go.trai.ch/zerr"
)

// NativePrefix marks bytes produced by Translator.
const NativePrefix = "native:"

// Class is a runtime class decoded from a def line.
type Class struct {
	name  string
	arity int
	ret   string
	throw string

	mu       sync.Mutex
	attempts []int
}

// Name implements ports.Class.
func (c *Class) Name() string {
	return c.name
}

// Arity returns the number of arguments the entry point accepts.
func (c *Class) Arity() int {
	return c.arity
}

// Invoke implements ports.Class.
func (c *Class) Invoke(_ context.Context, args ...any) (any, error) {
	c.mu.Lock()
	c.attempts = append(c.attempts, len(args))
	c.mu.Unlock()

	if len(args) != c.arity {
		err := zerr.Wrap(domain.ErrArityMismatch, "invoke rejected")
		err = zerr.With(err, "want", c.arity)
		return nil, zerr.With(err, "got", len(args))
	}
	if c.throw != "" {
		return nil, errors.New(c.throw)
	}
	if c.ret != "" {
		return c.ret, nil
	}
	return c.name, nil
}

// Attempts returns the argument counts of every Invoke call in order.
func (c *Class) Attempts() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.attempts...)
}

// ParseDef decodes a def line.
func ParseDef(line string) (*Class, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "def" {
		return nil, fmt.Errorf("not a def line: %q", line)
	}
	c := &Class{name: fields[1]}
	for _, f := range fields[2:] {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("malformed attribute %q", f)
		}
		switch key {
		case "arity":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("malformed arity %q: %w", value, err)
			}
			c.arity = n
		case "ret":
			c.ret = value
		case "throw":
			c.throw = value
		default:
			return nil, fmt.Errorf("unknown attribute %q", key)
		}
	}
	return c, nil
}

// Loader is a fixed set of classes.
type Loader struct {
	parent  ports.Loader
	classes map[string]ports.Class
	runtime *Runtime
}

// NewHostLoader creates a parent loader holding classes.
func NewHostLoader(classes ...ports.Class) *Loader {
	l := &Loader{classes: make(map[string]ports.Class, len(classes))}
	for _, c := range classes {
		l.classes[c.Name()] = c
	}
	return l
}

// Resolve implements ports.Loader. The parent is consulted first.
func (l *Loader) Resolve(name string) (ports.Class, error) {
	if l.parent != nil {
		if c, err := l.parent.Resolve(name); err == nil {
			return c, nil
		}
	}
	if c, ok := l.classes[name]; ok {
		if l.runtime != nil {
			l.runtime.initialize(name)
		}
		return c, nil
	}
	return nil, zerr.With(zerr.Wrap(domain.ErrClassNotFound, "resolve failed"), "class", name)
}

// Names returns the class names defined directly in l.
func (l *Loader) Names() []string {
	names := make([]string, 0, len(l.classes))
	for name := range l.classes {
		names = append(names, name)
	}
	return names
}

// Runtime implements ports.Linker over images produced by Translator.
// Decoded classes are reused across links so a class keeps its identity
// while the chain grows.
type Runtime struct {
	links atomic.Int64

	mu      sync.Mutex
	corrupt map[string]bool
	decoded map[string]*Class
	inits   map[string]func()
}

// NewRuntime creates a runtime.
func NewRuntime() *Runtime {
	return &Runtime{
		corrupt: make(map[string]bool),
		decoded: make(map[string]*Class),
		inits:   make(map[string]func()),
	}
}

// Links returns how many loaders were linked.
func (r *Runtime) Links() int {
	return int(r.links.Load())
}

// FailLinking makes every link that includes className fail.
func (r *Runtime) FailLinking(className string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.corrupt[className] = true
}

// OnInitialize registers fn as the initializer of className. It runs once,
// on the first resolution of the class from a linked loader.
func (r *Runtime) OnInitialize(className string, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inits[className] = fn
}

func (r *Runtime) initialize(className string) {
	r.mu.Lock()
	fn := r.inits[className]
	delete(r.inits, className)
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Link implements ports.Linker.
func (r *Runtime) Link(parent ports.Loader, images []domain.CompiledImage) (ports.Loader, error) {
	r.links.Add(1)

	r.mu.Lock()
	defer r.mu.Unlock()

	l := &Loader{parent: parent, classes: make(map[string]ports.Class, len(images)), runtime: r}
	for _, img := range images {
		if r.corrupt[img.ClassName] {
			return nil, fmt.Errorf("image for %s rejected by runtime", img.ClassName)
		}
		line, ok := bytes.CutPrefix(img.Native, []byte(NativePrefix))
		if !ok {
			return nil, fmt.Errorf("image for %s is not native", img.ClassName)
		}
		key := img.ClassName + "\x00" + string(line)
		c, ok := r.decoded[key]
		if !ok {
			var err error
			if c, err = ParseDef(string(line)); err != nil {
				return nil, err
			}
			r.decoded[key] = c
		}
		l.classes[img.ClassName] = c
	}
	return l, nil
}
