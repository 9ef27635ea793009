package render

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/prism/pkg/gpu"
)

// Shader sources are line-oriented directives. Blank lines and text after
// '#' are ignored. The only directive is
//
//	model <name>
//
// which selects a built-in stage implementation. Each stage must name
// exactly one model.

type uniformDecl struct {
	name string
	def  any
}

type program struct {
	vs     *vertexModel
	fs     *fragmentModel
	names  map[string]int
	values []any
}

func compileStage(stage, src string, lookup func(string) bool) (string, error) {
	var (
		model string
		diags []string
	)
	sc := bufio.NewScanner(strings.NewReader(src))
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch {
		case fields[0] != "model":
			diags = append(diags, fmt.Sprintf("%d: unknown directive %q", n, fields[0]))
		case len(fields) != 2:
			diags = append(diags, fmt.Sprintf("%d: model takes one argument", n))
		case model != "":
			diags = append(diags, fmt.Sprintf("%d: model already set to %q", n, model))
		case !lookup(fields[1]):
			diags = append(diags, fmt.Sprintf("%d: unknown %s model %q", n, stage, fields[1]))
		default:
			model = fields[1]
		}
	}
	if model == "" && len(diags) == 0 {
		diags = append(diags, "0: no model directive")
	}
	if len(diags) > 0 {
		return "", &gpu.CompileError{Stage: stage, Log: strings.Join(diags, "\n")}
	}
	return model, nil
}

func linkProgram(vertex, fragment string) (*program, error) {
	vsName, err := compileStage("vertex", vertex, func(name string) bool {
		_, ok := vertexModels[name]
		return ok
	})
	if err != nil {
		return nil, err
	}
	fsName, err := compileStage("fragment", fragment, func(name string) bool {
		_, ok := fragmentModels[name]
		return ok
	})
	if err != nil {
		return nil, err
	}

	p := &program{
		vs:    vertexModels[vsName],
		fs:    fragmentModels[fsName],
		names: make(map[string]int),
	}
	for _, decls := range [][]uniformDecl{p.vs.uniforms, p.fs.uniforms} {
		for _, u := range decls {
			if loc, ok := p.names[u.name]; ok {
				if !sameType(p.values[loc], u.def) {
					return nil, &gpu.CompileError{
						Stage: "link",
						Log:   fmt.Sprintf("uniform %q declared as %T and %T", u.name, p.values[loc], u.def),
					}
				}
				continue
			}
			p.names[u.name] = len(p.values)
			p.values = append(p.values, u.def)
		}
	}
	return p, nil
}

func (p *program) location(name string) int {
	if loc, ok := p.names[name]; ok {
		return loc
	}
	return -1
}

func (p *program) set(loc int, value any) error {
	if loc < 0 || loc >= len(p.values) {
		return fmt.Errorf("%w: uniform location %d", gpu.ErrInvalidValue, loc)
	}
	if !sameType(p.values[loc], value) {
		return fmt.Errorf("%w: uniform %d is %T, got %T", gpu.ErrInvalidValue, loc, p.values[loc], value)
	}
	p.values[loc] = value
	return nil
}

func (p *program) value(name string) any {
	if loc, ok := p.names[name]; ok {
		return p.values[loc]
	}
	return nil
}

func (p *program) scalar(name string) float32 {
	v, _ := p.value(name).(float32)
	return v
}

func (p *program) integer(name string) int {
	v, _ := p.value(name).(int32)
	return int(v)
}

func (p *program) vec3(name string) mgl32.Vec3 {
	v, _ := p.value(name).(mgl32.Vec3)
	return v
}

func (p *program) vec4(name string) mgl32.Vec4 {
	v, _ := p.value(name).(mgl32.Vec4)
	return v
}

func (p *program) mat3(name string) mgl32.Mat3 {
	v, ok := p.value(name).(mgl32.Mat3)
	if !ok {
		return mgl32.Ident3()
	}
	return v
}

func (p *program) mat4(name string) mgl32.Mat4 {
	v, ok := p.value(name).(mgl32.Mat4)
	if !ok {
		return mgl32.Ident4()
	}
	return v
}

func sameType(a, b any) bool {
	switch a.(type) {
	case float32:
		_, ok := b.(float32)
		return ok
	case int32:
		_, ok := b.(int32)
		return ok
	case uint32:
		_, ok := b.(uint32)
		return ok
	case mgl32.Vec2:
		_, ok := b.(mgl32.Vec2)
		return ok
	case mgl32.Vec3:
		_, ok := b.(mgl32.Vec3)
		return ok
	case mgl32.Vec4:
		_, ok := b.(mgl32.Vec4)
		return ok
	case mgl32.Mat3:
		_, ok := b.(mgl32.Mat3)
		return ok
	case mgl32.Mat4:
		_, ok := b.(mgl32.Mat4)
		return ok
	}
	return false
}
