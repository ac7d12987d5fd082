package administrator

import (
	"strconv"
	"strings"
	"time"

	"github.com/flifloo/administrator/internal/duration"
)

// ArgDef represents a argument definition
type ArgDef struct {
	Name    string
	Type    ArgType
	Help    string
	Default interface{}
}

type ParsedArg struct {
	Def   *ArgDef
	Value interface{}
	Raw   *RawArg
}

func (p *ParsedArg) Str() string {
	if p == nil || p.Value == nil {
		return ""
	}

	switch t := p.Value.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case time.Duration:
		return duration.Format(t)
	default:
		return ""
	}
}

func (p *ParsedArg) Int64() int64 {
	if p == nil || p.Value == nil {
		return 0
	}

	switch t := p.Value.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	default:
		return 0
	}
}

func (p *ParsedArg) Int() int {
	return int(p.Int64())
}

func (p *ParsedArg) Duration() time.Duration {
	if p == nil {
		return 0
	}
	d, _ := p.Value.(time.Duration)
	return d
}

// NewParsedArgs creates a new ParsedArg slice from defs passed, also filling default values
func NewParsedArgs(defs []*ArgDef) []*ParsedArg {
	out := make([]*ParsedArg, len(defs))

	for k := range out {
		out[k] = &ParsedArg{
			Def:   defs[k],
			Value: defs[k].Default,
		}
	}

	return out
}

// ArgType is the interface argument types has to implement,
type ArgType interface {
	// Return true if this argument part matches this type
	Matches(part string) bool

	// Attempt to parse it, returning any error if one occured.
	Parse(part string, data *Data) (val interface{}, err error)

	// Name as shown in help
	HelpName() string
}

var (
	// Create some convenience instances
	Int      = &IntArg{}
	String   = &StringArg{}
	UserID   = &UserIDArg{}
	Duration = &DurationArg{}
)

// IntArg matches and parses integer arguments
// If min and max are not equal then the value has to be within min and max or else it will fail parsing
type IntArg struct {
	Min, Max int64
}

func (i *IntArg) Matches(part string) bool {
	_, err := strconv.ParseInt(part, 10, 64)
	return err == nil
}

func (i *IntArg) Parse(part string, data *Data) (interface{}, error) {
	v, err := strconv.ParseInt(part, 10, 64)
	if err != nil {
		return nil, &InvalidInt{part}
	}

	// A valid range has been specified
	if i.Max != i.Min {
		if i.Max < v || i.Min > v {
			return nil, &OutOfRangeError{ArgName: "Number", Got: v, Min: i.Min, Max: i.Max}
		}
	}

	return v, nil
}

func (i *IntArg) HelpName() string {
	return "Whole number"
}

// StringArg matches and parses text arguments
type StringArg struct{}

func (s *StringArg) Matches(part string) bool                           { return true }
func (s *StringArg) Parse(part string, data *Data) (interface{}, error) { return part, nil }
func (s *StringArg) HelpName() string {
	return "Text"
}

// ChoiceArg matches one of a fixed set of case insensitive words, parsed into the lower
// cased choice
type ChoiceArg struct {
	Choices []string
}

func (c *ChoiceArg) Matches(part string) bool {
	for _, v := range c.Choices {
		if strings.EqualFold(v, part) {
			return true
		}
	}
	return false
}

func (c *ChoiceArg) Parse(part string, data *Data) (interface{}, error) {
	for _, v := range c.Choices {
		if strings.EqualFold(v, part) {
			return strings.ToLower(v), nil
		}
	}
	return nil, &InvalidChoice{Part: part, Choices: c.Choices}
}

func (c *ChoiceArg) HelpName() string {
	return strings.Join(c.Choices, "|")
}

// UserIDArg matches a mention or a plain id, the user does not have to be a part of the server
// The ID is parsed into a string snowflake
type UserIDArg struct{}

func (u *UserIDArg) Matches(part string) bool {
	_, ok := parseUserID(part)
	return ok
}

func (u *UserIDArg) Parse(part string, data *Data) (interface{}, error) {
	id, ok := parseUserID(part)
	if !ok {
		return nil, &ImproperMention{part}
	}
	return id, nil
}

func (u *UserIDArg) HelpName() string {
	return "Mention/ID"
}

func parseUserID(part string) (string, bool) {
	id := part
	if strings.HasPrefix(part, "<@") && strings.HasSuffix(part, ">") {
		// Direct mention, optionally a nickname mention
		id = strings.TrimPrefix(part[2:len(part)-1], "!")
	}

	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return "", false
	}
	return id, true
}

// DurationArg parses ?W?D?H?M?S durations such as "1d2h" or "30m"
type DurationArg struct{}

func (d *DurationArg) Matches(part string) bool {
	_, err := duration.Parse(part)
	return err == nil
}

func (d *DurationArg) Parse(part string, data *Data) (interface{}, error) {
	v, err := duration.Parse(part)
	if err != nil {
		return nil, &InvalidDuration{part}
	}
	return v, nil
}

func (d *DurationArg) HelpName() string {
	return "Duration (?W?D?H?M?S)"
}
