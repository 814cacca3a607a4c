package jsonpath

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func doc(t *testing.T) any {
	t.Helper()
	var d any
	err := json.Unmarshal([]byte(`{
		"data": {
			"jobs": [
				{"title": "Go Developer", "id": 42, "remote": true},
				{"title": "SRE"}
			],
			"total": 2
		}
	}`), &d)
	require.NoError(t, err)
	return d
}

func TestLookupNested(t *testing.T) {
	t.Parallel()
	d := doc(t)

	v, ok := Lookup(d, "data.jobs.0.title")
	require.True(t, ok)
	require.Equal(t, "Go Developer", v)

	_, ok = Lookup(d, "data.jobs.5.title")
	require.False(t, ok)
	_, ok = Lookup(d, "data.missing")
	require.False(t, ok)
	_, ok = Lookup(d, "")
	require.False(t, ok)
}

func TestStringCoercion(t *testing.T) {
	t.Parallel()
	d := doc(t)

	s, ok := String(d, "data.jobs.0.id")
	require.True(t, ok)
	require.Equal(t, "42", s)

	s, ok = String(d, "data.jobs.0.remote")
	require.True(t, ok)
	require.Equal(t, "true", s)

	_, ok = String(d, "data.jobs")
	require.False(t, ok)
}

func TestSlice(t *testing.T) {
	t.Parallel()
	d := doc(t)

	arr, ok := Slice(d, "data.jobs")
	require.True(t, ok)
	require.Len(t, arr, 2)

	_, ok = Slice(d, "data.total")
	require.False(t, ok)
}
