package administrator

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNotEnoughArguments = errors.New("Not enough arguments passed")
)

// withArgParsing parses the arguments of the invoked command before calling inner
func withArgParsing(inner RunFunc) RunFunc {
	return func(data *Data) (interface{}, error) {
		err := ParseCmdArgs(data)
		if err != nil {
			return nil, err
		}

		return inner(data)
	}
}

// ParseCmdArgs is the standard argument parser
// The remaining text after the command name is split with SplitArgs, each part is then
// parsed by the ArgDef at the same position, the last definition receives everything left
func ParseCmdArgs(data *Data) error {
	argDefsCommand, ok := data.Cmd.Command.(CmdWithArgDefs)
	if !ok {
		// Command dosen't use the standard arg parsing
		return nil
	}

	defs, req := argDefsCommand.ArgDefs(data)
	if len(defs) < 1 {
		return nil
	}

	return ParseArgDefs(defs, req, data, SplitArgs(data.MsgStrippedPrefix))
}

// ParseArgDefs parses ordered argument definition for a CmdWithArgDefs
func ParseArgDefs(defs []*ArgDef, required int, data *Data, split []*RawArg) error {
	parsedArgs := NewParsedArgs(defs)
	for i, def := range defs {
		if i >= len(split) {
			if i >= required {
				break
			}
			return ErrNotEnoughArguments
		}

		raw := split[i]
		combined := raw.Str
		if i == len(defs)-1 && len(split)-1 > i {
			// Last arg, but still more after, combine and rebuilt them
			parts := make([]string, 0, len(split)-i)
			for _, temp := range split[i:] {
				parts = append(parts, temp.String())
			}
			combined = strings.Join(parts, " ")
			raw = &RawArg{Str: combined}
		}

		val, err := def.Type.Parse(combined, data)
		if err != nil {
			return err
		}
		parsedArgs[i].Value = val
		parsedArgs[i].Raw = raw
	}

	data.Args = parsedArgs

	return nil
}

var (
	ArgContainers = []rune{
		'"',
		'`',
	}
)

type RawArg struct {
	Str       string
	Container rune
}

// String returns the argument as it was written, including its quotes
func (r *RawArg) String() string {
	if r.Container != 0 {
		return string(r.Container) + r.Str + string(r.Container)
	}
	return r.Str
}

// SplitArgs splits the string into fields, quoted parts are kept together and a
// backslash escapes the next rune
func SplitArgs(in string) []*RawArg {
	rawArgs := make([]*RawArg, 0)

	var curBuf strings.Builder
	escape := false
	var container rune

	flush := func(c rune) {
		rawArgs = append(rawArgs, &RawArg{curBuf.String(), c})
		curBuf.Reset()
	}

	for _, r := range in {
		if escape {
			curBuf.WriteRune(r)
			escape = false
			continue
		}

		switch {
		case r == '\\':
			escape = true
		case container != 0 && r == container:
			flush(container)
			container = 0
		case container != 0:
			curBuf.WriteRune(r)
		case r == ' ' || r == '\n' || r == '\t':
			if curBuf.Len() > 0 {
				flush(0)
			}
		case curBuf.Len() == 0 && isArgContainer(r):
			container = r
		default:
			curBuf.WriteRune(r)
		}
	}

	// Something was left in the buffer just add it to the end
	if container != 0 {
		// Unterminated quote, keep it as written
		rawArgs = append(rawArgs, &RawArg{string(container) + curBuf.String(), 0})
	} else if curBuf.Len() > 0 {
		flush(0)
	}

	return rawArgs
}

func isArgContainer(r rune) bool {
	for _, v := range ArgContainers {
		if v == r {
			return true
		}
	}
	return false
}
