package prompt

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineAsk(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := New(strings.NewReader("  first \nsecond\nlast"), &out)

	answer, err := p.Ask("1? ")
	require.NoError(t, err)
	require.Equal(t, "first", answer)

	answer, err = p.Ask("2? ")
	require.NoError(t, err)
	require.Equal(t, "second", answer)

	answer, err = p.Ask("3? ")
	require.NoError(t, err)
	require.Equal(t, "last", answer)

	_, err = p.Ask("4? ")
	require.ErrorIs(t, err, io.EOF)

	require.Equal(t, "1? 2? 3? 4? ", out.String())
}

func TestAskDefault(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := New(strings.NewReader("\n/data\n"), &out)

	answer, err := AskDefault(p, "Destination: ", "/tmp/out")
	require.NoError(t, err)
	require.Equal(t, "/tmp/out", answer)
	require.Contains(t, out.String(), "Destination [/tmp/out]: ")

	answer, err = AskDefault(p, "Destination: ", "/tmp/out")
	require.NoError(t, err)
	require.Equal(t, "/data", answer)
}

func TestConfirm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		def   bool
		want  bool
	}{
		{"y\n", false, true},
		{"JA\n", false, true},
		{"nein\n", true, false},
		{"\n", true, true},
		{"\n", false, false},
		{"maybe\nno\n", true, false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			got, err := Confirm(New(strings.NewReader(tt.input), io.Discard), "Continue?", tt.def)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := Confirm(New(strings.NewReader(""), io.Discard), "Continue?", true)
	require.ErrorIs(t, err, io.EOF)
}
