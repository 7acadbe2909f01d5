// Package message defines the payload and message model shared by the chat
// relay server and client: the Data union carried in broadcasts (text, file,
// image) and the tagged-union messages exchanged on the wire.
//
// Unions are encoded as a kind tag plus exactly one populated variant field.
// Validate enforces that shape after decoding; the constructors below are the
// only supported way to build values for sending.
package message

import "fmt"

// User identifies the sender of a broadcast by display name.
type User string

// Credentials travel only inside Auth messages and are discarded once the
// password verifier has been computed or checked.
type Credentials struct {
	User     User   `cbor:"1,keyasint"`
	Password string `cbor:"2,keyasint"`
}

// DataKind tags the variants of the Data union.
type DataKind uint8

const (
	DataText DataKind = iota + 1
	DataFile
	DataImage
)

func (k DataKind) String() string {
	switch k {
	case DataText:
		return "text"
	case DataFile:
		return "file"
	case DataImage:
		return "image"
	default:
		return "unknown"
	}
}

// Data is the tagged union of broadcastable payloads.
type Data struct {
	Kind  DataKind `cbor:"1,keyasint"`
	Text  string   `cbor:"2,keyasint,omitempty"`
	File  *File    `cbor:"3,keyasint,omitempty"`
	Image *Image   `cbor:"4,keyasint,omitempty"`
}

// TextData wraps a text line as broadcastable data.
func TextData(text string) Data { return Data{Kind: DataText, Text: text} }

// FileData wraps a file payload as broadcastable data.
func FileData(f *File) Data { return Data{Kind: DataFile, File: f} }

// ImageData wraps an image payload as broadcastable data.
func ImageData(img *Image) Data { return Data{Kind: DataImage, Image: img} }

// Validate checks that exactly the variant named by Kind is populated.
func (d *Data) Validate() error {
	switch d.Kind {
	case DataText:
		if d.File != nil || d.Image != nil {
			return fmt.Errorf("data: text variant with extra fields")
		}
	case DataFile:
		if d.File == nil {
			return fmt.Errorf("data: file variant without file")
		}
		if d.Image != nil {
			return fmt.Errorf("data: file variant with extra fields")
		}
	case DataImage:
		if d.Image == nil {
			return fmt.Errorf("data: image variant without image")
		}
		if d.File != nil {
			return fmt.Errorf("data: image variant with extra fields")
		}
	default:
		return fmt.Errorf("data: unknown kind %d", d.Kind)
	}
	return nil
}

func (d Data) String() string {
	switch d.Kind {
	case DataText:
		return d.Text
	case DataFile:
		return fmt.Sprintf("File{name: %q}", d.File.Name)
	case DataImage:
		return fmt.Sprintf("Image{format: %s}", d.Image.Format)
	default:
		return fmt.Sprintf("Data(%d)", d.Kind)
	}
}

// AuthKind tags the variants of an authentication request.
type AuthKind uint8

const (
	AuthLogIn AuthKind = iota + 1
	AuthSignUp
)

// Auth is a log-in or sign-up request with its credentials.
type Auth struct {
	Kind        AuthKind    `cbor:"1,keyasint"`
	Credentials Credentials `cbor:"2,keyasint"`
}

// ClientMsgKind tags the variants of a client-to-server message.
type ClientMsgKind uint8

const (
	ClientAuth ClientMsgKind = iota + 1
	ClientToAll
)

// ClientMsg is the tagged union of messages a client sends to the server.
type ClientMsg struct {
	Kind ClientMsgKind `cbor:"1,keyasint"`
	Auth *Auth         `cbor:"2,keyasint,omitempty"`
	Data *Data         `cbor:"3,keyasint,omitempty"`
}

// LogIn builds an authentication request for an existing user.
func LogIn(user User, password string) *ClientMsg {
	return &ClientMsg{Kind: ClientAuth, Auth: &Auth{Kind: AuthLogIn, Credentials: Credentials{User: user, Password: password}}}
}

// SignUp builds an account-creation request.
func SignUp(user User, password string) *ClientMsg {
	return &ClientMsg{Kind: ClientAuth, Auth: &Auth{Kind: AuthSignUp, Credentials: Credentials{User: user, Password: password}}}
}

// ToAll builds a broadcast request carrying the given data.
func ToAll(data Data) *ClientMsg {
	return &ClientMsg{Kind: ClientToAll, Data: &data}
}

// Validate checks the union shape of the message and its payload.
func (m *ClientMsg) Validate() error {
	switch m.Kind {
	case ClientAuth:
		if m.Auth == nil {
			return fmt.Errorf("client msg: auth variant without auth")
		}
		if m.Data != nil {
			return fmt.Errorf("client msg: auth variant with extra fields")
		}
		switch m.Auth.Kind {
		case AuthLogIn, AuthSignUp:
		default:
			return fmt.Errorf("client msg: unknown auth kind %d", m.Auth.Kind)
		}
	case ClientToAll:
		if m.Data == nil {
			return fmt.Errorf("client msg: to-all variant without data")
		}
		if m.Auth != nil {
			return fmt.Errorf("client msg: to-all variant with extra fields")
		}
		return m.Data.Validate()
	default:
		return fmt.Errorf("client msg: unknown kind %d", m.Kind)
	}
	return nil
}

func (m ClientMsg) String() string {
	switch m.Kind {
	case ClientAuth:
		switch m.Auth.Kind {
		case AuthLogIn:
			return fmt.Sprintf("Auth(LogIn(%s))", m.Auth.Credentials.User)
		case AuthSignUp:
			return fmt.Sprintf("Auth(SignUp(%s))", m.Auth.Credentials.User)
		}
		return "Auth(?)"
	case ClientToAll:
		return fmt.Sprintf("ToAll(%s)", m.Data)
	default:
		return fmt.Sprintf("ClientMsg(%d)", m.Kind)
	}
}

// ServerMsgKind tags the variants of a server-to-client message.
type ServerMsgKind uint8

const (
	ServerAuthenticated ServerMsgKind = iota + 1
	ServerError
	ServerDataFrom
)

// ServerMsg is the tagged union of messages the server sends to a client.
type ServerMsg struct {
	Kind ServerMsgKind `cbor:"1,keyasint"`
	Err  *ServerErr    `cbor:"2,keyasint,omitempty"`
	Data *Data         `cbor:"3,keyasint,omitempty"`
	From User          `cbor:"4,keyasint,omitempty"`
}

// Authenticated builds the handshake success message.
func Authenticated() *ServerMsg { return &ServerMsg{Kind: ServerAuthenticated} }

// ErrorMsg wraps a server error for delivery to a client.
func ErrorMsg(e ServerErr) *ServerMsg { return &ServerMsg{Kind: ServerError, Err: &e} }

// DataFrom builds a relayed broadcast addressed to a peer.
func DataFrom(data Data, from User) *ServerMsg {
	return &ServerMsg{Kind: ServerDataFrom, Data: &data, From: from}
}

// Validate checks the union shape of the message and its payload.
func (m *ServerMsg) Validate() error {
	switch m.Kind {
	case ServerAuthenticated:
		if m.Err != nil || m.Data != nil {
			return fmt.Errorf("server msg: authenticated variant with extra fields")
		}
	case ServerError:
		if m.Err == nil {
			return fmt.Errorf("server msg: error variant without error")
		}
		if m.Data != nil {
			return fmt.Errorf("server msg: error variant with extra fields")
		}
		return m.Err.Validate()
	case ServerDataFrom:
		if m.Data == nil {
			return fmt.Errorf("server msg: data-from variant without data")
		}
		if m.Err != nil {
			return fmt.Errorf("server msg: data-from variant with extra fields")
		}
		return m.Data.Validate()
	default:
		return fmt.Errorf("server msg: unknown kind %d", m.Kind)
	}
	return nil
}

func (m ServerMsg) String() string {
	switch m.Kind {
	case ServerAuthenticated:
		return "Authenticated"
	case ServerError:
		return fmt.Sprintf("Error(%s)", m.Err)
	case ServerDataFrom:
		return fmt.Sprintf("DataFrom{data: %s, from: %s}", m.Data, m.From)
	default:
		return fmt.Sprintf("ServerMsg(%d)", m.Kind)
	}
}
