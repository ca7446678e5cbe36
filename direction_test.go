package kvstream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirection(t *testing.T) {
	tests := []struct {
		dir     Direction
		name    string
		forward bool
		unique  bool
	}{
		{Next, "next", true, false},
		{NextUnique, "nextunique", true, true},
		{Prev, "prev", false, false},
		{PrevUnique, "prevunique", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, tt.dir.Valid())
			require.Equal(t, tt.name, tt.dir.String())
			require.Equal(t, tt.forward, tt.dir.Forward())
			require.Equal(t, tt.unique, tt.dir.Unique())

			text, err := tt.dir.MarshalText()
			require.NoError(t, err)
			var d Direction
			require.NoError(t, d.UnmarshalText(text))
			require.Equal(t, tt.dir, d)
		})
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("")
	require.NoError(t, err)
	require.Equal(t, Next, d)

	d, err = ParseDirection(" PrevUnique ")
	require.NoError(t, err)
	require.Equal(t, PrevUnique, d)

	_, err = ParseDirection("sideways")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDirectionInvalid(t *testing.T) {
	d := Direction(9)
	require.False(t, d.Valid())
	require.Equal(t, "Direction(9)", d.String())
	_, err := d.MarshalText()
	require.ErrorIs(t, err, ErrInvalidArgument)
}
