package entities

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"
)

// ABIVersion identifies the layout of the export table and its value types.
// Any change to field order, field width or an export signature bumps it.
const ABIVersion uint32 = 1

// VectorSize is the encoded size of EulerVector and PolarVector in bytes.
const VectorSize = 8

// EulerVector is a point in Cartesian coordinates.
// Layout: two float32 fields at offsets 0 and 4, no padding.
type EulerVector struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// PolarVector is a point in polar coordinates. Angle is in radians.
// Layout: two float32 fields at offsets 0 and 4, no padding.
type PolarVector struct {
	Length float32 `json:"length"`
	Angle  float32 `json:"angle"`
}

// String renders the vector as "(x, y)".
func (v EulerVector) String() string {
	return fmt.Sprintf("(%g, %g)", v.X, v.Y)
}

// String renders the vector as "(length, angle)".
func (v PolarVector) String() string {
	return fmt.Sprintf("(%g, %g)", v.Length, v.Angle)
}

// Encode writes the little-endian wire form of v into an 8-byte buffer.
func (v EulerVector) Encode() []byte {
	buf := make([]byte, VectorSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v.X))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(v.Y))
	return buf
}

// DecodeEulerVector reads the little-endian wire form produced by Encode.
func DecodeEulerVector(buf []byte) (EulerVector, error) {
	if len(buf) < VectorSize {
		return EulerVector{}, fmt.Errorf("euler vector needs %d bytes, got %d", VectorSize, len(buf))
	}
	return EulerVector{
		X: math.Float32frombits(binary.LittleEndian.Uint32(buf[0:4])),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8])),
	}, nil
}

// FieldLayout describes one field of a fixed-layout type.
type FieldLayout struct {
	Name   string
	Offset uintptr
	Size   uintptr
}

// TypeLayout describes the in-memory layout of a fixed-layout type.
type TypeLayout struct {
	Name   string
	Size   uintptr
	Align  uintptr
	Fields []FieldLayout
}

// EulerLayout reports the compiled layout of EulerVector.
func EulerLayout() TypeLayout {
	var v EulerVector
	return TypeLayout{
		Name:  "euler_vector",
		Size:  unsafe.Sizeof(v),
		Align: unsafe.Alignof(v),
		Fields: []FieldLayout{
			{Name: "x", Offset: unsafe.Offsetof(v.X), Size: unsafe.Sizeof(v.X)},
			{Name: "y", Offset: unsafe.Offsetof(v.Y), Size: unsafe.Sizeof(v.Y)},
		},
	}
}

// PolarLayout reports the compiled layout of PolarVector.
func PolarLayout() TypeLayout {
	var v PolarVector
	return TypeLayout{
		Name:  "polar_vector",
		Size:  unsafe.Sizeof(v),
		Align: unsafe.Alignof(v),
		Fields: []FieldLayout{
			{Name: "length", Offset: unsafe.Offsetof(v.Length), Size: unsafe.Sizeof(v.Length)},
			{Name: "angle", Offset: unsafe.Offsetof(v.Angle), Size: unsafe.Sizeof(v.Angle)},
		},
	}
}

// Check compares the layout against the boundary contract: size 8, align 4,
// two 4-byte fields at offsets 0 and 4. It returns a description of the
// first mismatch, or "" when the layout conforms.
func (l TypeLayout) Check() string {
	if l.Size != VectorSize {
		return fmt.Sprintf("size is %d, want %d", l.Size, VectorSize)
	}
	if l.Align != 4 {
		return fmt.Sprintf("alignment is %d, want 4", l.Align)
	}
	if len(l.Fields) != 2 {
		return fmt.Sprintf("has %d fields, want 2", len(l.Fields))
	}
	for i, f := range l.Fields {
		if want := uintptr(i * 4); f.Offset != want || f.Size != 4 {
			return fmt.Sprintf("field %s at offset %d size %d, want offset %d size 4", f.Name, f.Offset, f.Size, want)
		}
	}
	return ""
}
