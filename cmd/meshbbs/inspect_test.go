package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshbbs/pkg/board"
)

func TestPrintBoard(t *testing.T) {
	b := board.New(board.Config{}, nil)
	require.NoError(t, b.Load(context.Background()))
	for _, s := range []string{"one", "two", "three", "four"} {
		_, err := b.Post("T", "!0000beef", s, "body")
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	printBoard(&buf, b, 2)
	out := buf.String()

	assert.Contains(t, out, "[G] General Chat: 1\n")
	assert.Contains(t, out, "[T] Tech & Mesh Info: 4\n")
	assert.Contains(t, out, "four")
	assert.Contains(t, out, "three")
	assert.NotContains(t, out, "two ")
	assert.Contains(t, out, "total: 5 messages")
}
