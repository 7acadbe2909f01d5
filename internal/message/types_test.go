package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataValidate(t *testing.T) {
	for _, d := range []Data{
		TextData("hi"),
		FileData(&File{Name: "a"}),
		ImageData(&Image{Format: Png}),
	} {
		assert.NoError(t, d.Validate(), d.String())
	}

	assert.Error(t, (&Data{}).Validate())
	assert.Error(t, (&Data{Kind: DataFile}).Validate())
	assert.Error(t, (&Data{Kind: DataText, File: &File{}}).Validate())
	assert.Error(t, (&Data{Kind: DataImage, Image: &Image{}, File: &File{}}).Validate())
}

func TestClientMsgValidate(t *testing.T) {
	assert.NoError(t, LogIn("u", "p").Validate())
	assert.NoError(t, SignUp("u", "p").Validate())
	assert.NoError(t, ToAll(TextData("hi")).Validate())

	assert.Error(t, (&ClientMsg{}).Validate())
	assert.Error(t, (&ClientMsg{Kind: ClientAuth}).Validate())
	assert.Error(t, (&ClientMsg{Kind: ClientToAll}).Validate())
	assert.Error(t, (&ClientMsg{Kind: ClientAuth, Auth: &Auth{}}).Validate())
	bad := ToAll(TextData("hi"))
	bad.Auth = &Auth{Kind: AuthLogIn}
	assert.Error(t, bad.Validate())
}

func TestServerMsgValidate(t *testing.T) {
	assert.NoError(t, Authenticated().Validate())
	assert.NoError(t, ErrorMsg(ReceiveMsgErr("x")).Validate())
	assert.NoError(t, DataFrom(TextData("hi"), "u").Validate())

	assert.Error(t, (&ServerMsg{}).Validate())
	assert.Error(t, (&ServerMsg{Kind: ServerError}).Validate())
	assert.Error(t, (&ServerMsg{Kind: ServerDataFrom}).Validate())
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "Auth(LogIn(u))", LogIn("u", "p").String())
	assert.Equal(t, "ToAll(hi)", ToAll(TextData("hi")).String())
	assert.Equal(t, "Authenticated", Authenticated().String())
	assert.Equal(t, "text", DataText.String())
	assert.Equal(t, "image", DataImage.String())
}
