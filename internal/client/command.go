package client

import (
	"fmt"
	"strings"
)

// CommandKind tags parsed terminal input.
type CommandKind uint8

const (
	CmdQuit CommandKind = iota + 1
	CmdLogIn
	CmdSignUp
	CmdFile
	CmdImage
	CmdText
)

// Command is one parsed input line. Text carries the raw line for CmdText;
// Path the payload path for CmdFile/CmdImage; User and Password the
// credentials for CmdLogIn/CmdSignUp.
type Command struct {
	Kind     CommandKind
	Text     string
	Path     string
	User     string
	Password string
}

// ParseCommand interprets one input line. A leading dot on the first token
// selects a verb; anything else is a text broadcast. Wrong arity or an
// unknown verb is a parse error and sends nothing.
func ParseCommand(line string) (Command, error) {
	words := strings.Fields(line)
	if len(words) == 0 || !strings.HasPrefix(words[0], ".") {
		return Command{Kind: CmdText, Text: line}, nil
	}
	verb, args := strings.TrimPrefix(words[0], "."), words[1:]
	switch verb {
	case "quit":
		if len(args) != 0 {
			return Command{}, fmt.Errorf(".quit command can not be followed by any text")
		}
		return Command{Kind: CmdQuit}, nil
	case "file":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("command %q requires a path as the only argument", ".file")
		}
		return Command{Kind: CmdFile, Path: args[0]}, nil
	case "image":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("command %q requires a path as the only argument", ".image")
		}
		return Command{Kind: CmdImage, Path: args[0]}, nil
	case "login":
		if len(args) != 2 {
			return Command{}, fmt.Errorf("command %q needs a username, password and nothing else", ".login")
		}
		return Command{Kind: CmdLogIn, User: args[0], Password: args[1]}, nil
	case "signup":
		if len(args) != 2 {
			return Command{}, fmt.Errorf("command %q needs a username, password and nothing else", ".signup")
		}
		return Command{Kind: CmdSignUp, User: args[0], Password: args[1]}, nil
	default:
		return Command{}, fmt.Errorf("command %q is not supported", "."+verb)
	}
}
