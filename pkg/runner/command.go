package runner

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/value"
	"gopkg.in/yaml.v3"
)

// Op names a console command.
type Op string

const (
	OpGet      Op = "get"
	OpSet      Op = "set"
	OpReset    Op = "reset"
	OpTrigger  Op = "trigger"
	OpUndo     Op = "undo"
	OpRedo     Op = "redo"
	OpShow     Op = "show"
	OpValidate Op = "validate"
	OpSave     Op = "save"
	OpHelp     Op = "help"
	OpQuit     Op = "quit"
)

// Command is one request read by a handler.
type Command struct {
	Op    Op
	Key   value.Key
	Value value.Value
}

// Mutates reports whether the command can change the instance.
func (c Command) Mutates() bool {
	switch c.Op {
	case OpSet, OpReset, OpTrigger, OpUndo, OpRedo:
		return true
	}
	return false
}

func (c Command) needsKey() bool {
	switch c.Op {
	case OpGet, OpSet, OpReset, OpTrigger:
		return true
	}
	return false
}

// HelpText lists the console commands.
const HelpText = `commands:
  get <key>            print a value
  set <key> <value>    set a value (YAML literal, e.g. 3, true, [a, b])
  <key>=<value>        shorthand for set
  reset <key>          restore the default
  trigger <key>        fire an action
  undo | redo          walk the history
  show                 list every parameter
  validate             run every validator
  save                 persist the instance
  quit                 leave`

// ParseLine parses one console line. An empty line yields a zero Command
// and no error.
func ParseLine(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, nil
	}

	word, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	if k, raw, ok := strings.Cut(word, "="); ok && k != "" {
		v, err := ParseLiteral(strings.TrimSpace(raw + " " + rest))
		if err != nil {
			return Command{}, err
		}
		return Command{Op: OpSet, Key: value.Key(k), Value: v}, nil
	}

	cmd := Command{Op: Op(strings.ToLower(word))}
	switch cmd.Op {
	case "exit":
		cmd.Op = OpQuit
	case "ls", "list":
		cmd.Op = OpShow
	case "?":
		cmd.Op = OpHelp
	case OpGet, OpSet, OpReset, OpTrigger, OpUndo, OpRedo, OpShow, OpValidate, OpSave, OpHelp, OpQuit:
	default:
		return Command{}, fmt.Errorf("unknown command %q (try \"help\")", word)
	}

	if !cmd.needsKey() {
		return cmd, nil
	}
	key, raw, _ := strings.Cut(rest, " ")
	if key == "" {
		return Command{}, fmt.Errorf("%s: missing key", cmd.Op)
	}
	cmd.Key = value.Key(key)
	if cmd.Op == OpSet {
		v, err := ParseLiteral(strings.TrimSpace(raw))
		if err != nil {
			return Command{}, err
		}
		cmd.Value = v
	}
	return cmd, nil
}

// ParseLiteral reads a value typed by a person. Values are read as YAML
// scalars or flow collections ("3", "true", "[a, b]", "{x: 1}"); anything
// YAML cannot read is kept as text. A blank literal is Null.
func ParseLiteral(raw string) (value.Value, error) {
	if strings.TrimSpace(raw) == "" {
		return value.Null(), nil
	}
	var decoded any
	if err := yaml.Unmarshal([]byte(raw), &decoded); err != nil {
		return value.Text(raw), nil
	}
	return value.FromAny(decoded)
}
