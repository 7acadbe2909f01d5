package client

import (
	"fmt"

	"github.com/chatrelay/go-chat-relay/internal/message"
)

// processMsg renders one server message: text is printed, files and images
// are announced and saved, protocol errors map to one stderr line each.
func processMsg(cfg Config, msg *message.ServerMsg) {
	switch msg.Kind {
	case message.ServerDataFrom:
		processData(cfg, msg.Data, msg.From)
	case message.ServerAuthenticated:
		fmt.Fprintln(cfg.Out, "Welcome!")
	case message.ServerError:
		processErr(cfg, msg.Err)
	}
}

func processData(cfg Config, data *message.Data, from message.User) {
	switch data.Kind {
	case message.DataText:
		fmt.Fprintf(cfg.Out, "%s: %s\n", from, data.Text)
	case message.DataFile:
		fmt.Fprintf(cfg.Out, "Received %q from %s\n", data.File.Name, from)
		if _, err := data.File.Save(cfg.FileDir); err != nil {
			fmt.Fprintf(cfg.ErrOut, "...saving the file %q failed: %v\n", data.File.Name, err)
		}
	case message.DataImage:
		fmt.Fprintf(cfg.Out, "Received image from %s...\n", from)
		var path string
		var err error
		if cfg.SavePNG {
			path, err = data.Image.SaveAsPNG(cfg.ImageDir)
		} else {
			path, err = data.Image.Save(cfg.ImageDir)
		}
		if err != nil {
			fmt.Fprintf(cfg.ErrOut, "...saving the image failed: %v\n", err)
			return
		}
		fmt.Fprintf(cfg.Out, "...image was saved to %q\n", path)
	}
}

func processErr(cfg Config, serr *message.ServerErr) {
	switch serr.Kind {
	case message.ErrWrongPassword:
		fmt.Fprintln(cfg.ErrOut, "Given password is not correct")
	case message.ErrWrongUser:
		fmt.Fprintln(cfg.ErrOut, "The user does not exist, you can create it with a .signup")
	case message.ErrUsernameTaken:
		fmt.Fprintln(cfg.ErrOut, "Unfortunately this username is already taken, choose another one.")
	case message.ErrNotAuthenticated:
		fmt.Fprintf(cfg.ErrOut, "You need to .login or .signup before sending a message (attempted: %s)\n", serr.Attempted)
	case message.ErrAlreadyAuthenticated:
		fmt.Fprintln(cfg.ErrOut, "You are already authenticated")
	default:
		fmt.Fprintf(cfg.ErrOut, "The server reported an error: %s\n", serr)
	}
}
