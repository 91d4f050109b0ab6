package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/trace-callgraph/pkg/errors"
)

func TestNewTimeRange(t *testing.T) {
	r, err := NewTimeRange(10, 40)
	require.NoError(t, err)
	assert.Equal(t, TimeRange{Start: 10, End: 40}, r)

	_, err = NewTimeRange(10, 5)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidInterval(err))

	point, err := NewTimeRange(7, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), point.Length())
}

func TestTimeRange_Overlaps(t *testing.T) {
	tests := []struct {
		name       string
		a, b       TimeRange
		overlaps   bool
		contiguous bool
	}{
		{"same", TimeRange{0, 10}, TimeRange{0, 10}, true, true},
		{"partial", TimeRange{0, 10}, TimeRange{5, 15}, true, true},
		{"nested", TimeRange{0, 10}, TimeRange{3, 4}, true, true},
		{"touching endpoint", TimeRange{0, 10}, TimeRange{10, 20}, true, true},
		{"adjacent", TimeRange{0, 10}, TimeRange{11, 20}, false, true},
		{"adjacent reversed", TimeRange{11, 20}, TimeRange{0, 10}, false, true},
		{"gap", TimeRange{0, 10}, TimeRange{12, 20}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overlaps, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.overlaps, tt.b.Overlaps(tt.a))
			assert.Equal(t, tt.contiguous, tt.a.OverlapsOrContiguous(tt.b))
		})
	}
}

func TestTimeRange_Includes(t *testing.T) {
	r := TimeRange{Start: 10, End: 20}

	assert.True(t, r.Includes(TimeRange{10, 20}))
	assert.True(t, r.Includes(TimeRange{12, 15}))
	assert.False(t, r.Includes(TimeRange{9, 15}))
	assert.False(t, r.Includes(TimeRange{15, 21}))

	assert.True(t, r.IncludesTime(10))
	assert.True(t, r.IncludesTime(20))
	assert.False(t, r.IncludesTime(21))
}

func TestTimeRange_Intersection(t *testing.T) {
	got, ok := TimeRange{0, 10}.Intersection(TimeRange{5, 15})
	require.True(t, ok)
	assert.Equal(t, TimeRange{5, 10}, got)

	_, ok = TimeRange{0, 10}.Intersection(TimeRange{11, 15})
	assert.False(t, ok)
}

func TestTimeRange_Union(t *testing.T) {
	u, ok := TimeRange{0, 10}.Union(TimeRange{11, 20})
	assert.True(t, ok)
	assert.Equal(t, TimeRange{0, 20}, u)

	u, ok = TimeRange{0, 10}.Union(TimeRange{30, 40})
	assert.False(t, ok)
	assert.Equal(t, TimeRange{0, 10}, u)
}

func TestIntegerValue(t *testing.T) {
	tests := []struct {
		in   any
		want int64
		ok   bool
	}{
		{int(3), 3, true},
		{int64(-1), -1, true},
		{uint64(0x400000), 0x400000, true},
		{float64(12), 12, true},
		{float64(1.5), 0, false},
		{"12", 0, false},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got, ok := IntegerValue(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestInterval(t *testing.T) {
	iv := Interval{Attribute: 3, Start: 5, End: 9}
	assert.True(t, iv.IsNull())
	assert.Equal(t, TimeRange{5, 9}, iv.Range())

	iv.Value = "main"
	assert.False(t, iv.IsNull())
	assert.Equal(t, "main", FormatValue(iv.Value))
	assert.Equal(t, "42", FormatValue(int64(42)))
	assert.Equal(t, "", FormatValue(nil))
}
