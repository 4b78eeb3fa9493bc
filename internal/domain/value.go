package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Handle identifies a system, component or message owned by a simulation session.
type Handle string

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindScalar
	KindVector
	KindMatrix
	KindReference
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindVector:
		return "vector3"
	case KindMatrix:
		return "matrix3x3"
	case KindReference:
		return "reference"
	case KindTime:
		return "time"
	default:
		return "invalid"
	}
}

// Value is a parameter value exchanged with the simulation engine. Only one
// variant is set; use the constructors below to build one.
type Value struct {
	kind   Kind
	scalar float64
	vec    [3]float64
	mat    [3][3]float64
	ref    Handle
	t      time.Time
}

// Scalar wraps a plain number.
func Scalar(v float64) Value { return Value{kind: KindScalar, scalar: v} }

// Vector builds a 3-vector from its components.
func Vector(x, y, z float64) Value { return Value{kind: KindVector, vec: [3]float64{x, y, z}} }

// Vec builds a 3-vector from an array.
func Vec(v [3]float64) Value { return Value{kind: KindVector, vec: v} }

// Matrix wraps a row-major 3x3 matrix.
func Matrix(m [3][3]float64) Value { return Value{kind: KindMatrix, mat: m} }

// Ref points an input at another component's output message.
func Ref(h Handle) Value { return Value{kind: KindReference, ref: h} }

// Epoch wraps an absolute time, normalised to UTC.
func Epoch(t time.Time) Value { return Value{kind: KindTime, t: t.UTC()} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// AsScalar returns the number and whether v is a scalar.
func (v Value) AsScalar() (float64, bool) { return v.scalar, v.kind == KindScalar }

// AsVector returns the 3-vector and whether v is a vector.
func (v Value) AsVector() ([3]float64, bool) { return v.vec, v.kind == KindVector }

// AsMatrix returns the matrix and whether v is a matrix.
func (v Value) AsMatrix() ([3][3]float64, bool) { return v.mat, v.kind == KindMatrix }

// AsRef returns the referenced handle and whether v is a reference.
func (v Value) AsRef() (Handle, bool) { return v.ref, v.kind == KindReference }

// AsTime returns the time and whether v is an epoch.
func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == KindTime }

func (v Value) String() string {
	switch v.kind {
	case KindScalar:
		return fmt.Sprintf("%g", v.scalar)
	case KindVector:
		return fmt.Sprintf("%v", v.vec)
	case KindMatrix:
		return fmt.Sprintf("%v", v.mat)
	case KindReference:
		return "ref(" + string(v.ref) + ")"
	case KindTime:
		return v.t.Format(time.RFC3339)
	default:
		return "<invalid>"
	}
}

type refWire struct {
	Ref  Handle `json:"$ref,omitempty"`
	Time string `json:"$time,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindScalar:
		return json.Marshal(v.scalar)
	case KindVector:
		return json.Marshal(v.vec)
	case KindMatrix:
		return json.Marshal(v.mat)
	case KindReference:
		return json.Marshal(refWire{Ref: v.ref})
	case KindTime:
		return json.Marshal(refWire{Time: v.t.Format(time.RFC3339Nano)})
	default:
		return nil, fmt.Errorf("marshal value: %s", v.kind)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("unmarshal value: empty input")
	}

	switch data[0] {
	case '{':
		var w refWire
		if err := json.Unmarshal(data, &w); err != nil {
			return fmt.Errorf("unmarshal value: %w", err)
		}
		if w.Ref != "" {
			*v = Ref(w.Ref)
			return nil
		}
		if w.Time != "" {
			t, err := time.Parse(time.RFC3339Nano, w.Time)
			if err != nil {
				return fmt.Errorf("unmarshal value: %w", err)
			}
			*v = Epoch(t)
			return nil
		}
		return fmt.Errorf("unmarshal value: object without $ref or $time")
	case '[':
		if isNested(data) {
			var rows [][]float64
			if err := json.Unmarshal(data, &rows); err != nil {
				return fmt.Errorf("unmarshal value: %w", err)
			}
			if len(rows) != 3 {
				return fmt.Errorf("unmarshal value: matrix with %d rows", len(rows))
			}
			var m [3][3]float64
			for i, row := range rows {
				if len(row) != 3 {
					return fmt.Errorf("unmarshal value: matrix row %d of length %d", i, len(row))
				}
				copy(m[i][:], row)
			}
			*v = Matrix(m)
			return nil
		}
		var raw []float64
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("unmarshal value: %w", err)
		}
		if len(raw) != 3 {
			return fmt.Errorf("unmarshal value: vector of length %d", len(raw))
		}
		*v = Vector(raw[0], raw[1], raw[2])
		return nil
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("unmarshal value: %w", err)
		}
		*v = Scalar(f)
		return nil
	}
}

func isNested(data []byte) bool {
	inner := bytes.TrimSpace(data[1:])
	return len(inner) > 0 && inner[0] == '['
}

// Param is a single named parameter of a component or system.
type Param struct {
	Name  string
	Value Value
}

// Params keeps parameters in the order they were declared so requests are
// deterministic on the wire.
type Params []Param

func (p Params) Get(name string) (Value, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return Value{}, false
}

// References lists every message handle the parameters point at.
func (p Params) References() []Handle {
	var refs []Handle
	for _, param := range p {
		if h, ok := param.Value.AsRef(); ok {
			refs = append(refs, h)
		}
	}
	return refs
}

func (p Params) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, param := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(param.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(param.Value)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", param.Name, err)
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (p *Params) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("params: expected object")
	}

	var out Params
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("params: expected key, got %v", tok)
		}
		var v Value
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("param %s: %w", name, err)
		}
		out = append(out, Param{Name: name, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}
