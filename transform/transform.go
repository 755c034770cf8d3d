// Package transform implements pluggable variable-set transformers:
// conversions applied to each element as it moves from a send socket's
// variable set to a receive socket's, e.g. conservative-to-primitive
// truncation or a configurable linear map.
package transform

import "fmt"

// VarSetTransformer converts one element's sendStride-wide component
// vector into a recvStride-wide one. Implementations must be safe for
// concurrent use: the gather and scatter engines call Transform from
// every element of a plan without synchronization between calls.
type VarSetTransformer interface {
	Name() string
	InWidth() int
	OutWidth() int
	Transform(in []float64, out []float64)
}

// identity copies the first min(in,out) components unchanged. It is the
// transformer used when no name is configured, and stride mismatches
// beyond its In/Out width are a configuration error the builder catches
// before the engines ever call Transform.
type identity struct{ width int }

func NewIdentity(width int) VarSetTransformer { return &identity{width: width} }

func (t *identity) Name() string  { return "identity" }
func (t *identity) InWidth() int  { return t.width }
func (t *identity) OutWidth() int { return t.width }
func (t *identity) Transform(in, out []float64) {
	copy(out, in)
}

// truncate drops trailing components, e.g. mapping a conservative
// variable set (density, momentum, total energy) down to the leading
// components a simpler receiver consumes.
type truncate struct{ in, out int }

func NewTruncate(in, out int) VarSetTransformer { return &truncate{in: in, out: out} }

func (t *truncate) Name() string  { return "truncate" }
func (t *truncate) InWidth() int  { return t.in }
func (t *truncate) OutWidth() int { return t.out }
func (t *truncate) Transform(in, out []float64) {
	copy(out, in[:t.out])
}

// linear applies a dense out x in matrix, configured externally (e.g.
// from the YAML transformer block) rather than hardcoded per physical
// model.
type linear struct {
	rows [][]float64 // len(rows) == out width, len(rows[i]) == in width
}

func NewLinear(rows [][]float64) VarSetTransformer { return &linear{rows: rows} }

func (t *linear) Name() string { return "linear" }
func (t *linear) InWidth() int {
	if len(t.rows) == 0 {
		return 0
	}
	return len(t.rows[0])
}
func (t *linear) OutWidth() int { return len(t.rows) }
func (t *linear) Transform(in, out []float64) {
	for r, row := range t.rows {
		var sum float64
		for c, w := range row {
			sum += w * in[c]
		}
		out[r] = sum
	}
}

// Factory builds a VarSetTransformer sized to a specific (sendStride,
// recvStride) pair, since a named transformer like "truncate" is
// parametric in the widths of the sockets it connects.
type Factory func(sendStride, recvStride int) (VarSetTransformer, error)

// Registry resolves configured transformer names to factories.
type Registry struct {
	factories map[string]Factory
	warn      func(format string, args ...interface{})
}

// NewRegistry returns a Registry pre-populated with "identity" and
// "truncate". warn is called (e.g. log.Warnf) whenever Get falls back to
// identity for an unrecognized name.
func NewRegistry(warn func(format string, args ...interface{})) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		warn:      warn,
	}
	r.Register("identity", func(send, recv int) (VarSetTransformer, error) {
		if send != recv {
			return nil, fmt.Errorf("transform: identity requires equal strides, got send=%d recv=%d", send, recv)
		}
		return NewIdentity(send), nil
	})
	r.Register("truncate", func(send, recv int) (VarSetTransformer, error) {
		if recv > send {
			return nil, fmt.Errorf("transform: truncate requires recv<=send, got send=%d recv=%d", send, recv)
		}
		return NewTruncate(send, recv), nil
	})
	return r
}

// Register adds or replaces a named factory, e.g. a "linear" factory
// closing over a matrix parsed from configuration.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Get resolves name to a transformer sized for (sendStride, recvStride).
// An empty or unrecognized name falls back to identity, logging a
// warning in the latter case.
func (r *Registry) Get(name string, sendStride, recvStride int) (VarSetTransformer, error) {
	if name == "" {
		name = "identity"
	}
	f, ok := r.factories[name]
	if !ok {
		if r.warn != nil {
			r.warn("transform: unknown transformer %q, falling back to identity", name)
		}
		f = r.factories["identity"]
	}
	return f(sendStride, recvStride)
}
