// Package protocol defines the TalkLine wire protocol: newline-delimited
// text commands, split into at most three space-separated fields, and the
// fixed reply strings the server sends back.
package protocol

import (
	"fmt"
	"strings"
)

// MaxFields is the maximum number of fields a command line is split into.
// The third field absorbs the rest of the line, so message bodies may
// contain spaces.
const MaxFields = 3

// Command names. Dispatch is case-insensitive on the wire.
const (
	CmdLogin    = "login"
	CmdRegister = "register"
	CmdMessage  = "message"
	CmdLogout   = "logout"
	CmdList     = "list"
	CmdHelp     = "help"
	CmdQuit     = "quit"
)

// Server reply lines.
const (
	ReplySuccess     = "Success"
	ReplyFailed      = "Failed"
	ReplyUserExists  = "User already exists!"
	ReplyNotLoggedIn = "Not logged in!"
	ReplyNotSent     = "User is offline/Message is not sent"
	ReplyNoUsers     = "There are currently no registered users!"

	// ReplyUsageZeroArg answers unknown commands without arguments,
	// ReplyUsageTwoArg unknown commands with arguments.
	ReplyUsageZeroArg = "Usage : <Command> <Attribute/person> <Content>"
	ReplyUsageTwoArg  = "Please use appropriate commands!"
)

// Command is a single parsed input line.
//
// Zero-argument commands (quit, logout, help, list) carry Args == nil and
// Name holds the whole trimmed line, lowercased. Two-argument commands carry
// exactly two Args; Args[1] may contain spaces.
type Command struct {
	Name string
	Args []string
}

// ParseLine tokenizes one input line. The line is trimmed, then split on
// single spaces into at most MaxFields fields. Fewer than three fields means
// zero-argument dispatch on the entire trimmed line; exactly three means
// two-argument dispatch on the first field.
func ParseLine(line string) Command {
	trimmed := strings.TrimSpace(line)
	fields := strings.SplitN(trimmed, " ", MaxFields)
	if len(fields) < MaxFields {
		return Command{Name: strings.ToLower(trimmed)}
	}
	return Command{
		Name: strings.ToLower(fields[0]),
		Args: []string{fields[1], fields[2]},
	}
}

// FormatOnline renders the broadcast sent when a user logs in.
func FormatOnline(username string) string {
	return "Online " + username
}

// FormatOffline renders the broadcast sent when a user logs out.
func FormatOffline(username string) string {
	return "Offline " + username
}

// FormatLoggedOut renders the reply to a successful logout.
func FormatLoggedOut(username string) string {
	return "Logged out user : " + username
}

// FormatDirect renders a direct message as delivered to its recipient.
func FormatDirect(sender, text string) string {
	return "message " + sender + " : " + text
}

// FormatTotalOnline renders the trailer of the list reply.
func FormatTotalOnline(n int) string {
	return fmt.Sprintf("Total %d online.", n)
}

// HelpLines returns the fixed help text, one reply line per entry.
func HelpLines() []string {
	return []string{
		"help - Displays this help menu",
		"register <Username> <Password> - Register as a new user",
		"login <Username> <Password> - Login as a user",
		"logout - Logs you out to main menu",
		"list - Lists all online users",
		"message <Recipient> <Message> - Message someone",
		"quit - Exit program",
	}
}
