package control

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/moby/ifset/registry"
	"github.com/pkg/errors"
)

// MaxCommandSize is the largest accepted command, newline included.
const MaxCommandSize = 127

var (
	// ErrInputTooLarge is returned for commands longer than MaxCommandSize.
	ErrInputTooLarge = errors.New("command too large")
	// ErrMalformedCommand is returned for commands that cannot be parsed.
	ErrMalformedCommand = errors.New("malformed command")
)

// IsErrInputTooLarge returns true if err was caused by an oversized command.
func IsErrInputTooLarge(err error) bool {
	return errors.Cause(err) == ErrInputTooLarge
}

// IsErrMalformedCommand returns true if err was caused by an unparseable
// command.
func IsErrMalformedCommand(err error) bool {
	return errors.Cause(err) == ErrMalformedCommand
}

// Verb selects the operation of a command. It is the first byte of the
// command line.
type Verb byte

const (
	// VerbAdd adds an interface: "a <name>".
	VerbAdd Verb = 'a'
	// VerbDelete removes an interface: "d <name>".
	VerbDelete Verb = 'd'
	// VerbClear removes every interface: "c".
	VerbClear Verb = 'c'
	// VerbList returns the introspection table: "l".
	VerbList Verb = 'l'
	// VerbLookup asks whether an interface index is managed: "q <ifindex>".
	VerbLookup Verb = 'q'
)

// Command is a parsed control command.
type Command struct {
	Verb Verb
	// Name is set for VerbAdd and VerbDelete.
	Name string
	// Index is set for VerbLookup.
	Index int
}

// String encodes the command in wire format, without the newline.
func (c Command) String() string {
	switch c.Verb {
	case VerbAdd, VerbDelete:
		return fmt.Sprintf("%c %s", c.Verb, c.Name)
	case VerbLookup:
		return fmt.Sprintf("%c %d", c.Verb, c.Index)
	}
	return string(c.Verb)
}

// Parse decodes one command line. The verb is the first byte; the argument
// starts after the first space, with leading spaces skipped, and runs to the
// end of the line.
func Parse(data []byte) (Command, error) {
	if len(data) > MaxCommandSize {
		return Command{}, ErrInputTooLarge
	}
	if len(data) == 0 {
		return Command{}, errors.Wrap(ErrMalformedCommand, "empty command")
	}

	cmd := Command{Verb: Verb(data[0])}
	switch cmd.Verb {
	case VerbClear, VerbList:
		return cmd, nil
	case VerbAdd, VerbDelete, VerbLookup:
	default:
		return Command{}, errors.Wrapf(ErrMalformedCommand, "unknown verb %q", data[0])
	}

	arg, err := argument(data)
	if err != nil {
		return Command{}, err
	}

	if cmd.Verb == VerbLookup {
		cmd.Index, err = strconv.Atoi(string(arg))
		if err != nil {
			return Command{}, errors.Wrapf(ErrMalformedCommand, "invalid interface index %q", arg)
		}
		return cmd, nil
	}

	if err := registry.ValidateName(string(arg)); err != nil {
		return Command{}, errors.Wrap(ErrMalformedCommand, err.Error())
	}
	cmd.Name = string(arg)
	return cmd, nil
}

func argument(data []byte) ([]byte, error) {
	i := bytes.IndexByte(data, ' ')
	if i < 0 {
		return nil, errors.Wrap(ErrMalformedCommand, "missing argument")
	}
	arg := bytes.TrimLeft(data[i+1:], " ")
	if nl := bytes.IndexByte(arg, '\n'); nl >= 0 {
		arg = arg[:nl]
	}
	if len(arg) == 0 {
		return nil, errors.Wrap(ErrMalformedCommand, "missing argument")
	}
	return arg, nil
}
