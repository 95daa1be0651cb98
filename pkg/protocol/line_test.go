package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineTwoArgCommand(t *testing.T) {
	cmd := ParseLine("login alice secret")
	assert.Equal(t, CmdLogin, cmd.Name)
	require.Len(t, cmd.Args, 2)
	assert.Equal(t, "alice", cmd.Args[0])
	assert.Equal(t, "secret", cmd.Args[1])
}

func TestParseLineMessageBodyKeepsSpaces(t *testing.T) {
	cmd := ParseLine("message bob hello there, how are you")
	assert.Equal(t, CmdMessage, cmd.Name)
	require.Len(t, cmd.Args, 2)
	assert.Equal(t, "bob", cmd.Args[0])
	assert.Equal(t, "hello there, how are you", cmd.Args[1])
}

func TestParseLineZeroArgCommand(t *testing.T) {
	for _, line := range []string{"quit", "QUIT", "Quit", "  quit  ", "quit\n"} {
		cmd := ParseLine(line)
		assert.Equal(t, CmdQuit, cmd.Name, "line %q", line)
		assert.Nil(t, cmd.Args, "line %q", line)
	}
}

func TestParseLineCaseInsensitiveDispatchToken(t *testing.T) {
	cmd := ParseLine("LOGIN Alice Secret")
	assert.Equal(t, CmdLogin, cmd.Name)
	require.Len(t, cmd.Args, 2)
	// Only the dispatch token is folded; arguments keep their case.
	assert.Equal(t, "Alice", cmd.Args[0])
	assert.Equal(t, "Secret", cmd.Args[1])
}

func TestParseLineTwoFieldsIsZeroArgDispatch(t *testing.T) {
	// "login alice" has only two fields, so the whole line becomes the
	// dispatch token and falls through to the usage reply.
	cmd := ParseLine("login alice")
	assert.Equal(t, "login alice", cmd.Name)
	assert.Nil(t, cmd.Args)
}

func TestParseLineEmpty(t *testing.T) {
	cmd := ParseLine("")
	assert.Equal(t, "", cmd.Name)
	assert.Nil(t, cmd.Args)
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "Online alice", FormatOnline("alice"))
	assert.Equal(t, "Offline bob", FormatOffline("bob"))
	assert.Equal(t, "Logged out user : bob", FormatLoggedOut("bob"))
	assert.Equal(t, "message alice : hello there", FormatDirect("alice", "hello there"))
	assert.Equal(t, "Total 3 online.", FormatTotalOnline(3))
}

func TestHelpLines(t *testing.T) {
	lines := HelpLines()
	require.Len(t, lines, 7)
	assert.Equal(t, "help - Displays this help menu", lines[0])
	assert.Equal(t, "quit - Exit program", lines[6])
}
