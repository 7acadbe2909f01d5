package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chatrelay/go-chat-relay/internal/message"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSignUpAndLogIn(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	creds := message.Credentials{User: "alice", Password: "hunter2"}

	require.NoError(t, s.SignUp(ctx, creds))
	require.NoError(t, s.LogIn(ctx, creds))
}

func TestLogInUnknownUser(t *testing.T) {
	s := openTestStore(t)
	err := s.LogIn(context.Background(), message.Credentials{User: "ghost", Password: "x"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLogInWrongPassword(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SignUp(ctx, message.Credentials{User: "alice", Password: "hunter2"}))
	err := s.LogIn(ctx, message.Credentials{User: "alice", Password: "hunter3"})
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestSignUpDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SignUp(ctx, message.Credentials{User: "alice", Password: "one"}))
	err := s.SignUp(ctx, message.Credentials{User: "alice", Password: "two"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	// The original password still works.
	require.NoError(t, s.LogIn(ctx, message.Credentials{User: "alice", Password: "one"}))
}

func TestSignUpConcurrentSameName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	const racers = 8
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.SignUp(ctx, message.Credentials{User: "contested", Password: "pw"})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrUsernameTaken)
		}
	}
	assert.Equal(t, 1, wins)

	var count int64
	require.NoError(t, s.db.Model(&UserRow{}).Where("username = ?", "contested").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDuplicateUsernameTranslatesDriverError(t *testing.T) {
	// The unique index backstops SignUp's check-and-insert; the driver's
	// constraint violation must surface as gorm.ErrDuplicatedKey.
	s := openTestStore(t)
	require.NoError(t, s.db.Create(&UserRow{Username: "dup", PasswordHash: "x"}).Error)
	err := s.db.Create(&UserRow{Username: "dup", PasswordHash: "y"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestSignUpDuplicateAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")
	s1, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s1.Close() })
	s2, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })

	ctx := context.Background()
	require.NoError(t, s1.SignUp(ctx, message.Credentials{User: "alice", Password: "pw"}))
	err = s2.SignUp(ctx, message.Credentials{User: "alice", Password: "other"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestPasswordsAreNotStoredInClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SignUp(ctx, message.Credentials{User: "alice", Password: "hunter2"}))
	var row UserRow
	require.NoError(t, s.db.Where("username = ?", "alice").First(&row).Error)
	assert.NotContains(t, row.PasswordHash, "hunter2")
	assert.Contains(t, row.PasswordHash, "$argon2id$")
}

func TestRecordBroadcastText(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SignUp(ctx, message.Credentials{User: "alice", Password: "pw"}))
	require.NoError(t, s.RecordBroadcast(ctx, "alice", message.TextData("hello")))

	var msgs []MessageRow
	require.NoError(t, s.db.Find(&msgs).Error)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].TextID)
	assert.Nil(t, msgs[0].FileID)
	assert.Nil(t, msgs[0].ImageID)
	assert.False(t, msgs[0].Arrived.IsZero())

	var text TextRow
	require.NoError(t, s.db.First(&text, *msgs[0].TextID).Error)
	assert.Equal(t, "hello", text.Body)
}

func TestRecordBroadcastFileAndImage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SignUp(ctx, message.Credentials{User: "bob", Password: "pw"}))

	file := &message.File{Name: "notes.txt", Bytes: []byte("abc")}
	require.NoError(t, s.RecordBroadcast(ctx, "bob", message.FileData(file)))
	img := &message.Image{Format: message.Png, Bytes: []byte{0x89, 'P', 'N', 'G'}}
	require.NoError(t, s.RecordBroadcast(ctx, "bob", message.ImageData(img)))

	var msgs []MessageRow
	require.NoError(t, s.db.Order("id").Find(&msgs).Error)
	require.Len(t, msgs, 2)
	assert.NotNil(t, msgs[0].FileID)
	assert.NotNil(t, msgs[1].ImageID)

	var fr FileRow
	require.NoError(t, s.db.First(&fr, *msgs[0].FileID).Error)
	assert.Equal(t, "notes.txt", fr.Name)
	assert.Equal(t, []byte("abc"), fr.Bytes)
}

func TestRecordBroadcastUnknownSender(t *testing.T) {
	s := openTestStore(t)
	err := s.RecordBroadcast(context.Background(), "nobody", message.TextData("hi"))
	assert.ErrorIs(t, err, ErrDatabase)
}
