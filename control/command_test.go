package control

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		input string
		cmd   Command
	}{
		{"a eth0\n", Command{Verb: VerbAdd, Name: "eth0"}},
		{"a eth0", Command{Verb: VerbAdd, Name: "eth0"}},
		{"a    veth-1\n", Command{Verb: VerbAdd, Name: "veth-1"}},
		{"d eth0\n", Command{Verb: VerbDelete, Name: "eth0"}},
		{"add eth0\n", Command{Verb: VerbAdd, Name: "eth0"}},
		{"c\n", Command{Verb: VerbClear}},
		{"clear everything\n", Command{Verb: VerbClear}},
		{"l\n", Command{Verb: VerbList}},
		{"q 7\n", Command{Verb: VerbLookup, Index: 7}},
	} {
		cmd, err := Parse([]byte(tc.input))
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.cmd, cmd, tc.input)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, input := range []string{
		"",
		"\n",
		"x eth0\n",
		"a\n",
		"a \n",
		"d\n",
		"a eth0 extra\n",
		"a eth0/1\n",
		"a averyveryverylongname\n",
		"q\n",
		"q abc\n",
	} {
		_, err := Parse([]byte(input))
		require.Error(t, err, "%q", input)
		assert.True(t, IsErrMalformedCommand(err), "%q: %v", input, err)
	}
}

func TestParseTooLarge(t *testing.T) {
	input := "a " + strings.Repeat("x", MaxCommandSize)
	_, err := Parse([]byte(input))
	assert.True(t, IsErrInputTooLarge(err))

	input = "c" + strings.Repeat(" ", MaxCommandSize-2) + "\n"
	require.Len(t, input, MaxCommandSize)
	_, err = Parse([]byte(input))
	assert.NoError(t, err)
}

func TestCommandString(t *testing.T) {
	for _, cmd := range []Command{
		{Verb: VerbAdd, Name: "eth0"},
		{Verb: VerbDelete, Name: "lo"},
		{Verb: VerbClear},
		{Verb: VerbList},
		{Verb: VerbLookup, Index: 12},
	} {
		parsed, err := Parse([]byte(cmd.String() + "\n"))
		require.NoError(t, err)
		assert.Equal(t, cmd, parsed)
	}
}
