package protocol

import (
	"sort"
	"strconv"
)

// --------------------------------------------------------------------------
// Command structure
// --------------------------------------------------------------------------

// Arg is one positional command argument. Keys and command words travel as
// bulk strings; values travel fully encoded so the server sees their type.
type Arg struct {
	Key     string
	Value   interface{}
	IsValue bool
}

// KeyArg builds an argument encoded as a bulk string
func KeyArg(key string) Arg {
	return Arg{Key: key}
}

// ValueArg builds an argument encoded with the full value grammar
func ValueArg(value interface{}) Arg {
	return Arg{Value: value, IsValue: true}
}

// Command is a single request: a name plus its ordered arguments.
// Immutable once built; construct one per call.
type Command struct {
	Name string
	Args []Arg
}

// Encode serializes the command into a request frame
func (c Command) Encode() ([]byte, error) {
	dst := make([]byte, 0, 64)
	dst = append(dst, tagArray)
	dst = strconv.AppendInt(dst, int64(1+len(c.Args)), 10)
	dst = append(dst, '\r', '\n')
	dst = appendBulk(dst, []byte(c.Name))

	var err error
	for _, arg := range c.Args {
		if arg.IsValue {
			if dst, err = appendValue(dst, arg.Value); err != nil {
				return nil, err
			}
		} else {
			dst = appendBulk(dst, []byte(arg.Key))
		}
	}
	return dst, nil
}

// Idempotent reports whether the command can safely be resent when the
// connection dropped before its reply arrived
func (c Command) Idempotent() bool {
	switch c.Name {
	case CmdPing, CmdGet, CmdMGet, CmdKeys, CmdDBSize, CmdLastSave:
		return true
	}
	return false
}

// --------------------------------------------------------------------------
// Command names (wire spelling dictated by the server)
// --------------------------------------------------------------------------

const (
	CmdPing     = "PING"
	CmdFlush    = "FLUSH"
	CmdDBSize   = "DBSIZE"
	CmdSave     = "SAVE"
	CmdKeys     = "KEYS"
	CmdLastSave = "LASTSAVE"
	CmdGet      = "GET"
	CmdMGet     = "MGET"
	CmdSet      = "SET"
	CmdMSet     = "MSET"
	CmdDelete   = "DELETE"
)

// --------------------------------------------------------------------------
// Command factory functions
// --------------------------------------------------------------------------

// NewPingCommand creates a PING command
func NewPingCommand() Command {
	return Command{Name: CmdPing}
}

// NewFlushCommand creates a FLUSH command
func NewFlushCommand() Command {
	return Command{Name: CmdFlush}
}

// NewDBSizeCommand creates a DBSIZE command
func NewDBSizeCommand() Command {
	return Command{Name: CmdDBSize}
}

// NewSaveCommand creates a SAVE command
func NewSaveCommand() Command {
	return Command{Name: CmdSave}
}

// NewKeysCommand creates a KEYS command
func NewKeysCommand() Command {
	return Command{Name: CmdKeys}
}

// NewLastSaveCommand creates a LASTSAVE command
func NewLastSaveCommand() Command {
	return Command{Name: CmdLastSave}
}

// NewGetCommand creates a GET command for the given key
func NewGetCommand(key string) Command {
	return Command{Name: CmdGet, Args: []Arg{KeyArg(key)}}
}

// NewMGetCommand creates an MGET command for the given keys
func NewMGetCommand(keys ...string) Command {
	args := make([]Arg, len(keys))
	for i, k := range keys {
		args[i] = KeyArg(k)
	}
	return Command{Name: CmdMGet, Args: args}
}

// NewSetCommand creates a SET command for the given record
func NewSetCommand(key string, value interface{}) Command {
	return Command{Name: CmdSet, Args: []Arg{KeyArg(key), ValueArg(value)}}
}

// NewMSetCommand creates an MSET command. Entries are encoded in sorted key
// order so the frame is deterministic.
func NewMSetCommand(entries map[string]interface{}) Command {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]Arg, 0, len(entries)*2)
	for _, k := range keys {
		args = append(args, KeyArg(k), ValueArg(entries[k]))
	}
	return Command{Name: CmdMSet, Args: args}
}

// NewDeleteCommand creates a DELETE command for the given key
func NewDeleteCommand(key string) Command {
	return Command{Name: CmdDelete, Args: []Arg{KeyArg(key)}}
}
