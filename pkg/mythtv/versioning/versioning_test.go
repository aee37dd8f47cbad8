package versioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRange_Contains(t *testing.T) {
	tests := []struct {
		name string
		r    Range
		v    Version
		want bool
	}{
		{"below lower bound", Since(35), 30, false},
		{"at lower bound", Since(35), 35, true},
		{"above lower bound unbounded", Since(35), 400, true},
		{"at upper bound excluded", Between(10, 57), 57, false},
		{"just below upper bound", Between(10, 57), 56, true},
		{"latest in unbounded", Since(10), Latest, true},
		{"latest in bounded", Between(10, 57), Latest, false},
		{"always", Always, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Contains(tt.v))
		})
	}
}

func TestNewRange_Invalid(t *testing.T) {
	_, err := NewRange(57, 10)
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = NewRange(-3, Unbounded)
	require.ErrorIs(t, err, ErrInvalidRange)

	assert.Panics(t, func() { MustRange(20, 5) })
}

func TestNewRange_EmptyIsAllowed(t *testing.T) {
	r, err := NewRange(10, 10)
	require.NoError(t, err)
	assert.False(t, r.Contains(10))
}

func TestRange_Overlaps(t *testing.T) {
	assert.True(t, Between(0, 57).Overlaps(Between(50, 60)))
	assert.False(t, Between(0, 57).Overlaps(Since(57)))
	assert.True(t, Since(57).Overlaps(Since(80)))
	assert.False(t, Since(80).Overlaps(Between(10, 80)))
}

func TestRange_String(t *testing.T) {
	assert.Equal(t, "[10,latest)", Since(10).String())
	assert.Equal(t, "[0,57)", Until(57).String())
}

func TestValue_At(t *testing.T) {
	val := MustValue(At(0, 0x20), At(57, 0x100000))

	raw, ok := val.At(50)
	require.True(t, ok)
	assert.Equal(t, int64(0x20), raw)

	raw, ok = val.At(57)
	require.True(t, ok)
	assert.Equal(t, int64(0x100000), raw)

	raw, ok = val.At(Latest)
	require.True(t, ok)
	assert.Equal(t, int64(0x100000), raw)
}

func TestValue_AtBeforeFirstPair(t *testing.T) {
	val := MustValue(At(77, 0x20))

	_, ok := val.At(76)
	assert.False(t, ok)

	raw, ok := val.At(77)
	assert.True(t, ok)
	assert.Equal(t, int64(0x20), raw)
}

func TestValue_Fixed(t *testing.T) {
	val := Fixed(4)
	assert.True(t, val.IsFixed())

	for _, v := range []Version{0, 12, 91, Latest} {
		raw, ok := val.At(v)
		assert.True(t, ok)
		assert.Equal(t, int64(4), raw)
	}

	// A single pair at version zero takes the same fast path.
	assert.True(t, MustValue(At(0, 9)).IsFixed())
}

func TestValue_EvaluationOrderIndependent(t *testing.T) {
	val := MustValue(At(0, 1), At(40, 2), At(80, 3))

	late, _ := val.At(85)
	early, _ := val.At(45)
	again, _ := val.At(85)

	assert.Equal(t, int64(2), early)
	assert.Equal(t, late, again)
	assert.Equal(t, int64(3), late)
}

func TestNewValue_Invalid(t *testing.T) {
	_, err := NewValue()
	require.ErrorIs(t, err, ErrInvalidValue)

	_, err = NewValue(At(57, 1), At(10, 2))
	require.ErrorIs(t, err, ErrInvalidValue)

	_, err = NewValue(At(10, 1), At(10, 2))
	require.ErrorIs(t, err, ErrInvalidValue)
}

func TestValue_PairsIsCopy(t *testing.T) {
	val := MustValue(At(0, 1), At(10, 2))
	pairs := val.Pairs()
	pairs[0].Raw = 99

	raw, _ := val.At(0)
	assert.Equal(t, int64(1), raw)
}
