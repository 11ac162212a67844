// Package dtypes defines the element types that can live in device memory,
// and their mapping to and from Go types.
//
// Every memory handle and kernel argument slot in the runtime is tagged with
// a DType; the launch layer compares these tags against a compiled kernel's
// declared parameter slots before anything reaches the driver.
package dtypes

//go:generate go tool enumer -type=DType dtypes.go

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// DType is the type tag of an element stored in device-visible memory.
type DType int32

const (
	// InvalidDType represents an invalid (or not set) dtype.
	InvalidDType DType = iota

	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float16
	Float32
	Float64
)

// Supported lists the Go types representable in device memory.
//
// The set is closed: a device sees flat two's-complement integers and IEEE
// floats, nothing else, so named types aliasing these are deliberately not
// admitted (no "~").
type Supported interface {
	int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64 |
		float16.Float16 | float32 | float64
}

// Size returns the size in bytes of one element of this dtype.
// It returns 0 for InvalidDType.
func (dtype DType) Size() int {
	switch dtype {
	case Int8, Uint8:
		return 1
	case Int16, Uint16, Float16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	}
	return 0
}

// GoType returns the reflect.Type of the Go type corresponding to this dtype.
func (dtype DType) GoType() reflect.Type {
	switch dtype {
	case Int8:
		return reflect.TypeOf(int8(0))
	case Int16:
		return reflect.TypeOf(int16(0))
	case Int32:
		return reflect.TypeOf(int32(0))
	case Int64:
		return reflect.TypeOf(int64(0))
	case Uint8:
		return reflect.TypeOf(uint8(0))
	case Uint16:
		return reflect.TypeOf(uint16(0))
	case Uint32:
		return reflect.TypeOf(uint32(0))
	case Uint64:
		return reflect.TypeOf(uint64(0))
	case Float16:
		return reflect.TypeOf(float16.Float16(0))
	case Float32:
		return reflect.TypeOf(float32(0))
	case Float64:
		return reflect.TypeOf(float64(0))
	}
	return nil
}

// FromGoType returns the DType for the given Go type, or InvalidDType if the
// type is not device-representable.
func FromGoType(t reflect.Type) DType {
	for _, dtype := range DTypeValues() {
		if dtype != InvalidDType && dtype.GoType() == t {
			return dtype
		}
	}
	return InvalidDType
}

// FromGenericsType returns the DType for the Go type given as the generics
// parameter.
func FromGenericsType[T Supported]() DType {
	var v T
	return FromGoType(reflect.TypeOf(v))
}

// MapOfNames maps the usual dtype names and their common aliases ("f32",
// "half", ...) to the corresponding DType. Keys are stored lower-case; use
// FromName for case-insensitive lookups.
var MapOfNames = map[string]DType{
	"int8":    Int8,
	"i8":      Int8,
	"int16":   Int16,
	"i16":     Int16,
	"int32":   Int32,
	"i32":     Int32,
	"int64":   Int64,
	"i64":     Int64,
	"uint8":   Uint8,
	"u8":      Uint8,
	"byte":    Uint8,
	"uint16":  Uint16,
	"u16":     Uint16,
	"uint32":  Uint32,
	"u32":     Uint32,
	"uint64":  Uint64,
	"u64":     Uint64,
	"float16": Float16,
	"f16":     Float16,
	"half":    Float16,
	"float32": Float32,
	"f32":     Float32,
	"float64": Float64,
	"f64":     Float64,
	"double":  Float64,
}

// FromName converts a dtype name or one of its aliases to the DType.
// Lookup is case-insensitive.
func FromName(name string) (DType, error) {
	if dtype, ok := MapOfNames[strings.ToLower(name)]; ok {
		return dtype, nil
	}
	return InvalidDType, errors.Errorf("unknown dtype name %q", name)
}

// SizeOf returns the size in bytes of the Go type given as the generics
// parameter.
func SizeOf[T Supported]() int {
	var v T
	return int(reflect.TypeOf(v).Size())
}
