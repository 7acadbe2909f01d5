package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		name string
		line string
		want Command
	}{
		{"plain text", "hello world", Command{Kind: CmdText, Text: "hello world"}},
		{"text with inner dot", "say .quit to leave", Command{Kind: CmdText, Text: "say .quit to leave"}},
		{"leading spaces before dot", "   .quit", Command{Kind: CmdQuit}},
		{"quit", ".quit", Command{Kind: CmdQuit}},
		{"file", ".file /tmp/notes.txt", Command{Kind: CmdFile, Path: "/tmp/notes.txt"}},
		{"image", ".image pic.png", Command{Kind: CmdImage, Path: "pic.png"}},
		{"login", ".login alice hunter2", Command{Kind: CmdLogIn, User: "alice", Password: "hunter2"}},
		{"signup", ".signup bob pw", Command{Kind: CmdSignUp, User: "bob", Password: "pw"}},
		{"empty line is text", "", Command{Kind: CmdText, Text: ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCommand(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"quit with args", ".quit now"},
		{"file without path", ".file"},
		{"file with two paths", ".file a b"},
		{"image without path", ".image"},
		{"login missing password", ".login alice"},
		{"login with extra arg", ".login alice pw extra"},
		{"signup without args", ".signup"},
		{"unknown verb", ".shrug"},
		{"bare dot", "."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCommand(tc.line)
			assert.Error(t, err)
		})
	}
}
