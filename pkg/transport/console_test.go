package transport

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsole(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole("!local", strings.NewReader("hello\nR G\n"), &out)
	assert.Equal(t, "console", c.Name())

	var got []Packet
	for p := range c.Packets() {
		got = append(got, p)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "!local", got[0].From)
	assert.Equal(t, "hello", got[0].Text)
	assert.Equal(t, "R G", got[1].Text)
	assert.NotEmpty(t, got[1].ID)

	require.NoError(t, c.Send(context.Background(), "!local", "[1/2] part"))
	assert.Equal(t, "[1/2] part\n\n", out.String())

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send(context.Background(), "!local", "late"), ErrClosed)
}
