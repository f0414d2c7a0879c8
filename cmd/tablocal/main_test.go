package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchPlaysToTheEnd(t *testing.T) {
	for _, pair := range [][2]string{{"greedy", "random"}, {"lua", "minimax"}} {
		var out bytes.Buffer
		o := options{size: 5, watch: true, policies: pair, depth: 1, seed: 42, maxTurns: 300}
		require.NoError(t, run(context.Background(), o, strings.NewReader(""), &out))
		s := out.String()
		assert.True(t, strings.Contains(s, "wins!") || strings.Contains(s, "draw"), s)
		assert.Contains(t, s, "throws")
	}
}

func TestHumanCanQuit(t *testing.T) {
	var out bytes.Buffer
	o := options{size: 5, policies: [2]string{"", "greedy"}, seed: 1, maxTurns: 10}
	err := run(context.Background(), o, strings.NewReader("q\n"), &out)
	assert.ErrorIs(t, err, errQuit)
	assert.Contains(t, out.String(), "throw the sticks")
}

func TestUnknownPolicy(t *testing.T) {
	o := options{size: 5, watch: true, policies: [2]string{"chess", "greedy"}, maxTurns: 1}
	assert.Error(t, run(context.Background(), o, strings.NewReader(""), &bytes.Buffer{}))
}
