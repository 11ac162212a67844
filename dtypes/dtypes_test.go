package dtypes

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestDType_Size(t *testing.T) {
	require.Equal(t, 0, InvalidDType.Size())
	require.Equal(t, 1, Int8.Size())
	require.Equal(t, 2, Float16.Size())
	require.Equal(t, 4, Float32.Size())
	require.Equal(t, 8, Uint64.Size())

	// Size must agree with the Go representation for every valid dtype.
	for _, dtype := range DTypeValues() {
		if dtype == InvalidDType {
			continue
		}
		require.Equal(t, int(dtype.GoType().Size()), dtype.Size(), "dtype %s", dtype)
	}
}

func TestFromGenericsType(t *testing.T) {
	require.Equal(t, Int32, FromGenericsType[int32]())
	require.Equal(t, Uint16, FromGenericsType[uint16]())
	require.Equal(t, Float16, FromGenericsType[float16.Float16]())
	require.Equal(t, Float64, FromGenericsType[float64]())
}

func TestFromGoType(t *testing.T) {
	require.Equal(t, Float32, FromGoType(reflect.TypeOf(float32(0))))
	require.Equal(t, InvalidDType, FromGoType(reflect.TypeOf("")))
	require.Equal(t, InvalidDType, FromGoType(reflect.TypeOf(complex64(0))))
}

func TestMapOfNames(t *testing.T) {
	require.Equal(t, Float16, MapOfNames["float16"])
	require.Equal(t, Float16, MapOfNames["f16"])
	require.Equal(t, Float16, MapOfNames["half"])
	require.Equal(t, Float64, MapOfNames["double"])

	dtype, err := FromName("Float32")
	require.NoError(t, err)
	require.Equal(t, Float32, dtype)

	_, err = FromName("quaternion")
	require.Error(t, err)
}

func TestDTypeString(t *testing.T) {
	require.Equal(t, "Int32", Int32.String())
	dtype, err := DTypeString("Uint8")
	require.NoError(t, err)
	require.Equal(t, Uint8, dtype)
}

func TestSizeOf(t *testing.T) {
	require.Equal(t, 2, SizeOf[float16.Float16]())
	require.Equal(t, 8, SizeOf[int64]())
}
