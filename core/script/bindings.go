package script

import (
	"math"
	"strconv"

	"github.com/dop251/goja"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/wes321/dingcad/core/csg"
)

// solidTag keys the hidden property that holds a wrapped *csg.Solid. Only
// objects built by the csg module carry it.
var solidTag = goja.NewSymbol("dingcad.solid")

// GetGeometryHandle returns the solid wrapped by v. It reports false for
// anything that is not an object created by the csg module, including
// look-alike objects with the same methods, and for released solids.
func GetGeometryHandle(v goja.Value) (*csg.Solid, bool) {
	obj, ok := v.(*goja.Object)
	if !ok || obj == nil {
		return nil, false
	}
	tag := obj.GetSymbol(solidTag)
	if tag == nil || goja.IsUndefined(tag) || goja.IsNull(tag) {
		return nil, false
	}
	s, ok := tag.Export().(*csg.Solid)
	if !ok || s.Released() {
		return nil, false
	}
	return s, true
}

// binder exposes the geometry kernel to one execution context. Every solid
// it hands to script is tracked by the context's arena.
type binder struct {
	vm     *goja.Runtime
	arena  *csg.Arena
	kernel csg.Kernel
	proto  *goja.Object
}

func newBinder(vm *goja.Runtime, arena *csg.Arena, kernel csg.Kernel) *binder {
	b := &binder{vm: vm, arena: arena, kernel: kernel}
	b.proto = b.newProto()
	return b
}

// module is the require loader for "csg".
func (b *binder) module(vm *goja.Runtime, module *goja.Object) {
	exports := module.Get("exports").(*goja.Object)
	set := func(name string, fn func(goja.FunctionCall) goja.Value) {
		_ = exports.Set(name, fn)
	}

	set("cube", func(call goja.FunctionCall) goja.Value {
		size := b.vecArg(call.Argument(0), "cube size")
		return b.wrap(csg.Cube(size, b.boolArg(call.Argument(1))))
	})
	set("sphere", func(call goja.FunctionCall) goja.Value {
		r := b.numArg(call.Argument(0), "sphere radius")
		return b.wrap(csg.Sphere(r, b.intArgOr(call.Argument(1), csg.DefaultSegments)))
	})
	set("cylinder", func(call goja.FunctionCall) goja.Value {
		h := b.numArg(call.Argument(0), "cylinder height")
		r1 := b.numArg(call.Argument(1), "cylinder radius")
		r2 := r1
		if !isMissing(call.Argument(2)) {
			r2 = b.numArg(call.Argument(2), "cylinder top radius")
		}
		seg := b.intArgOr(call.Argument(3), csg.DefaultSegments)
		return b.wrap(csg.Cylinder(h, r1, r2, seg, b.boolArg(call.Argument(4))))
	})
	set("torus", func(call goja.FunctionCall) goja.Value {
		major := b.numArg(call.Argument(0), "torus major radius")
		minor := b.numArg(call.Argument(1), "torus minor radius")
		segU := b.intArgOr(call.Argument(2), csg.DefaultSegments)
		segV := b.intArgOr(call.Argument(3), csg.DefaultSegments/2)
		return b.wrap(csg.Torus(major, minor, segU, segV))
	})

	set("union", func(call goja.FunctionCall) goja.Value {
		return b.wrap(b.kernel.Union(b.solidList(call.Arguments)...))
	})
	set("difference", func(call goja.FunctionCall) goja.Value {
		return b.wrap(b.kernel.Difference(b.solidArg(call.Argument(0)), b.solidArg(call.Argument(1))))
	})
	set("intersection", func(call goja.FunctionCall) goja.Value {
		return b.wrap(b.kernel.Intersection(b.solidArg(call.Argument(0)), b.solidArg(call.Argument(1))))
	})

	for name, op := range transforms {
		name, op := name, op
		set(name, func(call goja.FunctionCall) goja.Value {
			s := b.solidArg(call.Argument(0))
			return b.wrap(op(s, b.vecArg(call.Argument(1), name)))
		})
	}
}

var transforms = map[string]func(*csg.Solid, r3.Vec) (*csg.Solid, error){
	"translate": (*csg.Solid).Translate,
	"rotate":    (*csg.Solid).Rotate,
	"scale":     (*csg.Solid).Scale,
	"mirror":    (*csg.Solid).Mirror,
}

// newProto builds the prototype shared by every solid object in the context.
func (b *binder) newProto() *goja.Object {
	p := b.vm.NewObject()
	method := func(name string, fn func(s *csg.Solid, call goja.FunctionCall) goja.Value) {
		_ = p.Set(name, func(call goja.FunctionCall) goja.Value {
			return fn(b.solidArg(call.This), call)
		})
	}

	for name, op := range transforms {
		name, op := name, op
		method(name, func(s *csg.Solid, call goja.FunctionCall) goja.Value {
			return b.wrap(op(s, b.vecArg(call.Argument(0), name)))
		})
	}
	method("union", func(s *csg.Solid, call goja.FunctionCall) goja.Value {
		return b.wrap(b.kernel.Union(append([]*csg.Solid{s}, b.solidList(call.Arguments)...)...))
	})
	method("difference", func(s *csg.Solid, call goja.FunctionCall) goja.Value {
		return b.wrap(b.kernel.Difference(s, b.solidArg(call.Argument(0))))
	})
	method("intersection", func(s *csg.Solid, call goja.FunctionCall) goja.Value {
		return b.wrap(b.kernel.Intersection(s, b.solidArg(call.Argument(0))))
	})
	method("bounds", func(s *csg.Solid, _ goja.FunctionCall) goja.Value {
		box := s.Bounds()
		o := b.vm.NewObject()
		_ = o.Set("min", []float64{box.Min.X, box.Min.Y, box.Min.Z})
		_ = o.Set("max", []float64{box.Max.X, box.Max.Y, box.Max.Z})
		return o
	})
	method("numVert", func(s *csg.Solid, _ goja.FunctionCall) goja.Value {
		return b.vm.ToValue(s.NumVert())
	})
	method("numTri", func(s *csg.Solid, _ goja.FunctionCall) goja.Value {
		return b.vm.ToValue(s.NumTri())
	})
	return p
}

// wrap tracks s in the arena and returns its script object. A kernel error
// is thrown into script.
func (b *binder) wrap(s *csg.Solid, err error) goja.Value {
	if err != nil {
		panic(b.vm.NewGoError(err))
	}
	b.arena.Track(s)
	o := b.vm.NewObject()
	_ = o.SetPrototype(b.proto)
	_ = o.DefineDataPropertySymbol(solidTag, b.vm.ToValue(s), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)
	return o
}

func (b *binder) throwType(format string) {
	panic(b.vm.NewTypeError(format))
}

func isMissing(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

func (b *binder) solidArg(v goja.Value) *csg.Solid {
	s, ok := GetGeometryHandle(v)
	if !ok {
		b.throwType("expected a solid")
	}
	return s
}

// solidList accepts solids as separate arguments or as one array.
func (b *binder) solidList(args []goja.Value) []*csg.Solid {
	if len(args) == 1 {
		if obj, ok := args[0].(*goja.Object); ok && obj.ClassName() == "Array" {
			args = b.arrayItems(obj)
		}
	}
	if len(args) == 0 {
		b.throwType("union needs at least one solid")
	}
	return lo.Map(args, func(v goja.Value, _ int) *csg.Solid { return b.solidArg(v) })
}

func (b *binder) arrayItems(obj *goja.Object) []goja.Value {
	n := int(obj.Get("length").ToInteger())
	items := make([]goja.Value, n)
	for i := range items {
		items[i] = obj.Get(strconv.Itoa(i))
	}
	return items
}

func (b *binder) numArg(v goja.Value, what string) float64 {
	if isMissing(v) {
		b.throwType(what + " is required")
	}
	f := v.ToFloat()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		b.throwType(what + " must be a finite number")
	}
	return f
}

func (b *binder) intArgOr(v goja.Value, def int) int {
	if isMissing(v) {
		return def
	}
	return int(b.numArg(v, "segment count"))
}

func (b *binder) boolArg(v goja.Value) bool {
	return !isMissing(v) && v.ToBoolean()
}

// vecArg accepts a number (applied to all axes) or an [x, y, z] array.
func (b *binder) vecArg(v goja.Value, what string) r3.Vec {
	obj, ok := v.(*goja.Object)
	if !ok {
		f := b.numArg(v, what)
		return r3.Vec{X: f, Y: f, Z: f}
	}
	if obj.ClassName() != "Array" {
		b.throwType(what + " must be a number or [x, y, z]")
	}
	items := b.arrayItems(obj)
	if len(items) != 3 {
		b.throwType(what + " must have 3 components")
	}
	return r3.Vec{
		X: b.numArg(items[0], what),
		Y: b.numArg(items[1], what),
		Z: b.numArg(items[2], what),
	}
}
