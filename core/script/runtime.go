// Package script hosts the scene scripting runtime. Scenes are ES or
// CommonJS modules, lowered to CommonJS by esbuild and evaluated by goja;
// each load runs in a fresh execution context that is torn down before
// LoadScene returns.
//
//	import { cube, sphere } from "csg";
//	export const scene = cube([20, 20, 20], true).union(sphere(12));
package script

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	"go.uber.org/zap"

	"github.com/wes321/dingcad/core/csg"
)

type Option func(*Runtime)

func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithKernel replaces the boolean kernel behind csg.union and friends.
func WithKernel(k csg.Kernel) Option {
	return func(r *Runtime) {
		if k != nil {
			r.kernel = k
		}
	}
}

// WithResolver shares an existing module store with the runtime.
func WithResolver(res *Resolver) Option {
	return func(r *Runtime) { r.resolver = res }
}

// Runtime is the process-wide script host. The zero value is not usable;
// call New and then Initialize.
type Runtime struct {
	mu       sync.Mutex
	ready    bool
	logger   *zap.Logger
	kernel   csg.Kernel
	resolver *Resolver
}

func New(opts ...Option) *Runtime {
	r := &Runtime{
		logger: zap.NewNop(),
		kernel: csg.MergeKernel{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize prepares the runtime for loads. It fails with
// ErrAlreadyInitialized until Shutdown is called.
func (r *Runtime) Initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return ErrAlreadyInitialized
	}
	if r.resolver == nil {
		res, err := NewResolver()
		if err != nil {
			return err
		}
		r.resolver = res
	}
	r.ready = true
	r.logger.Debug("script runtime initialized")
	return nil
}

// Shutdown ends the runtime's lifetime. Loads fail until the next Initialize.
func (r *Runtime) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		return
	}
	r.ready = false
	r.resolver.SetLatest("")
	r.logger.Debug("script runtime shut down")
}

func (r *Runtime) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Resolver returns the module store, or nil before the first Initialize.
func (r *Runtime) Resolver() *Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolver
}

// LoadScene evaluates src as the main module and returns the solid bound to
// its scene export. The caller owns one reference to the returned solid.
// Every failure is a *LoadError.
func (r *Runtime) LoadScene(src string) (solid *csg.Solid, err error) {
	if src == "" {
		return nil, newLoadError(KindEmptyInput, msgEmptyInput, nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		return nil, newLoadError(KindRuntimeNotInitialized, msgNotInitialized, nil)
	}
	r.resolver.SetLatest(src)

	c, err := r.newContext()
	if err != nil {
		return nil, err
	}
	defer c.close()
	defer func() {
		if p := recover(); p != nil {
			solid.Release()
			solid = nil
			if ex, ok := p.(*goja.Exception); ok {
				err = c.exception(ex)
				return
			}
			r.logger.Error("scene evaluation panicked", zap.Any("panic", p), zap.Stack("stack"))
			err = newLoadError(KindScriptRuntime, fmt.Sprintf("panic: %v", p), fmt.Errorf("panic: %v", p))
		}
	}()

	solid, err = c.run(src)
	if err != nil {
		r.logger.Debug("scene load failed", zap.Stringer("kind", KindOf(err)), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("scene loaded", zap.Int("vertices", solid.NumVert()), zap.Int("triangles", solid.NumTri()))
	return solid, nil
}

// execContext is everything one load owns: a VM, its module registry and
// the arena holding every solid the script created.
type execContext struct {
	vm       *goja.Runtime
	arena    *csg.Arena
	req      *require.RequireModule
	resolver *Resolver

	// notFound is the last error object thrown for an unresolved import.
	notFound *goja.Object
}

func (r *Runtime) newContext() (*execContext, error) {
	c := &execContext{
		vm:       goja.New(),
		arena:    csg.NewArena(),
		resolver: r.resolver,
	}

	reg := require.NewRegistry(require.WithLoader(c.loadSource))
	reg.RegisterNativeModule("csg", newBinder(c.vm, c.arena, r.kernel).module)
	reg.RegisterNativeModule("console", console.RequireWithPrinter(zapPrinter{l: r.logger.Named("console")}))
	c.req = reg.Enable(c.vm)
	if err := c.vm.Set("require", c.require); err != nil {
		c.close()
		return nil, fmt.Errorf("script: install require: %w", err)
	}

	con, err := c.req.Require("console")
	if err != nil {
		c.close()
		return nil, fmt.Errorf("script: install console: %w", err)
	}
	if err := c.vm.Set("console", con); err != nil {
		c.close()
		return nil, fmt.Errorf("script: install console: %w", err)
	}
	return c, nil
}

// close releases the arena's references and stops any retained closure from
// running again.
func (c *execContext) close() {
	c.arena.Close()
	c.vm.Interrupt("script context closed")
}

// loadSource feeds the module registry from the resolver. Bare specifiers
// are looked up under node_modules by the registry; they also resolve
// against the store root.
func (c *execContext) loadSource(p string) ([]byte, error) {
	src, err := c.resolver.Resolve(p)
	if errors.Is(err, ErrModuleNotFound) {
		if rest, ok := strings.CutPrefix(p, "node_modules/"); ok {
			src, err = c.resolver.Resolve(rest)
		}
	}
	if errors.Is(err, ErrModuleNotFound) {
		return nil, require.ModuleFileDoesNotExistError
	}
	if err != nil || path.Ext(p) == ".json" {
		return src, err
	}
	return libraryToCommonJS(path.Base(p), src)
}

// require is the global require seen by the main module. Unresolved imports
// throw a ReferenceError naming the specifier.
func (c *execContext) require(call goja.FunctionCall) goja.Value {
	spec := call.Argument(0).String()
	v, err := c.req.Require(spec)
	if err == nil {
		return v
	}
	var ex *goja.Exception
	if errors.As(err, &ex) {
		panic(ex)
	}
	if errors.Is(err, require.InvalidModuleError) || errors.Is(err, require.ModuleFileDoesNotExistError) {
		panic(c.referenceError(moduleNotFoundMessage(spec)))
	}
	panic(c.vm.NewGoError(err))
}

func (c *execContext) referenceError(msg string) *goja.Object {
	obj, err := c.vm.New(c.vm.Get("ReferenceError"), c.vm.ToValue(msg))
	if err != nil {
		panic(err)
	}
	c.notFound = obj
	return obj
}

const (
	moduleWrapperHead = "(function(exports, require, module) {"
	moduleWrapperTail = "})"
)

func (c *execContext) run(src string) (*csg.Solid, error) {
	code, err := toCommonJS(MainModule, src)
	if err != nil {
		return nil, newLoadError(KindScriptCompile, err.Error(), err)
	}
	prg, err := goja.Compile(MainModule, code, false)
	if err != nil {
		return nil, newLoadError(KindScriptCompile, err.Error(), err)
	}
	wrapper, err := c.vm.RunProgram(prg)
	if err != nil {
		return nil, c.exception(err)
	}
	call, ok := goja.AssertFunction(wrapper)
	if !ok {
		return nil, newLoadError(KindScriptCompile, "SyntaxError: scene module is not a function body", nil)
	}

	module := c.vm.NewObject()
	exports := c.vm.NewObject()
	_ = module.Set("exports", exports)
	if _, err := call(exports, exports, c.vm.Get("require"), module); err != nil {
		return nil, c.exception(err)
	}

	var scene goja.Value
	if ns, ok := module.Get("exports").(*goja.Object); ok {
		scene = ns.Get("scene")
	}
	if scene == nil || goja.IsUndefined(scene) {
		return nil, newLoadError(KindMissingExport, msgMissingExport, nil)
	}
	handle, ok := GetGeometryHandle(scene)
	if !ok {
		return nil, newLoadError(KindInvalidExport, msgInvalidExport, nil)
	}
	// The arena's reference goes away with the context.
	if handle = handle.Retain(); handle == nil {
		return nil, newLoadError(KindInvalidExport, msgInvalidExport, nil)
	}
	return handle, nil
}

// exception classifies an evaluation error. The message is the thrown
// value's stack when it has one, else its string form.
func (c *execContext) exception(err error) *LoadError {
	var ex *goja.Exception
	if !errors.As(err, &ex) {
		return newLoadError(KindScriptRuntime, err.Error(), err)
	}
	var se *syntaxError
	if errors.As(ex, &se) {
		return newLoadError(KindScriptCompile, se.Error(), ex)
	}
	msg := exceptionText(ex)
	notFound := c.notFound != nil && ex.Value() == goja.Value(c.notFound)
	if notFound || errors.Is(ex, require.InvalidModuleError) || errors.Is(ex, require.ModuleFileDoesNotExistError) {
		return newLoadError(KindModuleNotFound, msg, ex)
	}
	return newLoadError(KindScriptRuntime, msg, ex)
}

func exceptionText(ex *goja.Exception) string {
	v := ex.Value()
	if v == nil {
		return ex.Error()
	}
	if obj, ok := v.(*goja.Object); ok {
		if st := obj.Get("stack"); st != nil && !goja.IsUndefined(st) && !goja.IsNull(st) {
			return trimHostFrames(st.String())
		}
	}
	return v.String()
}

// trimHostFrames drops stack lines for Go functions bound into the VM, which
// are named by their import path and mean nothing to a script author.
func trimHostFrames(stack string) string {
	lines := strings.Split(stack, "\n")
	kept := lines[:0]
	for _, l := range lines {
		f := strings.TrimSpace(l)
		if strings.HasPrefix(f, "at ") && strings.HasSuffix(f, "(native)") && strings.Contains(f, "/") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}
