package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeReconstructs(t *testing.T) {
	assert := assert.New(t)

	for _, s := range []string{
		"",
		"hello",
		"hello world",
		"  leading and trailing  ",
		"punct, punct. and-dashes_underscores",
		"multi\nline\ttext",
	} {
		assert.Equal(s, strings.Join(Tokenize(s), ""))
	}
}

// Concatenating the equal+inserted spans must reproduce the new text, and
// the equal+deleted spans the old text, for any input pair.
func TestWordDiffReconstruction(t *testing.T) {
	assert := assert.New(t)

	pairs := [][2]string{
		{"the quick brown fox", "the quick brown fox"},
		{"the quick brown fox", "the slow brown fox"},
		{"the quick brown fox", "a quick brown fox jumps"},
		{"", "something from nothing"},
		{"everything removed", ""},
		{"one, two, three.", "one, 2, three!"},
		{"word", "completely different text entirely"},
	}
	for _, p := range pairs {
		ops := WordDiff(p[0], p[1])
		var oldOut, newOut strings.Builder
		for _, op := range ops {
			switch op.Operation {
			case OpEqual:
				oldOut.WriteString(op.Deleted)
				newOut.WriteString(op.Inserted)
			case OpDelete:
				oldOut.WriteString(op.Deleted)
			case OpInsert:
				newOut.WriteString(op.Inserted)
			case OpReplace:
				oldOut.WriteString(op.Deleted)
				newOut.WriteString(op.Inserted)
			}
		}
		assert.Equal(p[0], oldOut.String(), "old reconstruction for %q -> %q", p[0], p[1])
		assert.Equal(p[1], newOut.String(), "new reconstruction for %q -> %q", p[0], p[1])
	}
}

func TestWordDiffEqualSpansMatch(t *testing.T) {
	assert := assert.New(t)

	ops := WordDiff("the quick brown fox", "the slow brown fox")
	for _, op := range ops {
		if op.Operation == OpEqual {
			assert.Equal(op.Deleted, op.Inserted)
		}
	}
}

func TestWordDiffSingleReplace(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	ops := WordDiff("the quick fox", "the slow fox")
	require.Len(ops, 3)
	assert.Equal(OpEqual, ops[0].Operation)
	assert.Equal("the ", ops[0].Inserted)
	assert.Equal(OpReplace, ops[1].Operation)
	assert.Equal("quick", ops[1].Deleted)
	assert.Equal("slow", ops[1].Inserted)
	assert.Equal(OpEqual, ops[2].Operation)
	assert.Equal(" fox", ops[2].Inserted)
}

func TestIdenticalTextsSingleEqualOp(t *testing.T) {
	require := require.New(t)

	ops := WordDiff("same text", "same text")
	require.Len(ops, 1)
	require.Equal(OpEqual, ops[0].Operation)
}
