package intervalstore

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/trace-callgraph/pkg/errors"
	"github.com/trace-callgraph/pkg/model"
)

func TestDump_RoundTrip(t *testing.T) {
	s, stack := newStackStore(t)

	var buf bytes.Buffer
	require.NoError(t, s.WriteJSON(&buf))

	loaded, err := LoadJSON(&buf)
	require.NoError(t, err)

	assert.Equal(t, s.TimeSpan(), loaded.TimeSpan())
	assert.Equal(t, s.Attributes(), loaded.Attributes())
	levels, err := loaded.SubAttributes(stack)
	require.NoError(t, err)
	assert.Equal(t, s.Intervals(levels[1]), loaded.Intervals(levels[1]))

	thread := loaded.Parent(stack)
	ivs := loaded.Intervals(thread)
	require.Len(t, ivs, 1)
	assert.Equal(t, int64(42), ivs[0].Value)
}

func TestLoadJSON(t *testing.T) {
	input := `{
  "start": 0, "end": 9,
  "attributes": [
    {"id": 0, "parent": -1, "name": "T"},
    {"id": 1, "parent": 0, "name": "1"}
  ],
  "intervals": [
    {"attribute": 1, "start": 5, "end": 9, "value": null},
    {"attribute": 1, "start": 0, "end": 4, "value": 4198400},
    {"attribute": 0, "start": 0, "end": 9, "value": 1.5}
  ]
}`
	s, err := LoadJSON(strings.NewReader(input))
	require.NoError(t, err)

	ivs := s.Intervals(1)
	require.Len(t, ivs, 2)
	assert.Equal(t, int64(4198400), ivs[0].Value)
	assert.Nil(t, ivs[1].Value)
	assert.Equal(t, 1.5, s.Intervals(0)[0].Value)
	assert.Equal(t, model.TimeRange{Start: 0, End: 9}, s.TimeSpan())
}

func TestLoadJSON_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"syntax", `{`},
		{"span", `{"start": 5, "end": 1}`},
		{"parent order", `{"start":0,"end":1,"attributes":[{"id":0,"parent":3,"name":"x"}]}`},
		{"sparse ids", `{"start":0,"end":1,"attributes":[{"id":4,"parent":-1,"name":"x"}]}`},
		{"unknown attribute", `{"start":0,"end":1,"intervals":[{"attribute":0,"start":0,"end":1}]}`},
		{"reversed interval", `{"start":0,"end":9,"attributes":[{"id":0,"parent":-1,"name":"x"}],"intervals":[{"attribute":0,"start":5,"end":1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadJSON(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.NotEqual(t, apperrors.CodeUnknown, apperrors.GetErrorCode(err))
		})
	}
}
