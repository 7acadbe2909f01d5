// Package store persists chat users and the record of every broadcast in a
// SQLite database through GORM. Credentials are verified against Argon2id
// hashes; cleartext passwords never touch the database.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chatrelay/go-chat-relay/internal/message"
)

// Sentinel errors callers classify via errors.Is.
var (
	ErrUserNotFound  = errors.New("user does not exist")
	ErrWrongPassword = errors.New("wrong password")
	ErrUsernameTaken = errors.New("username taken")
	ErrDatabase      = errors.New("database")
	ErrSecurity      = errors.New("security")
)

// Store is the shared handle to the user and message database. Safe for
// concurrent use; SignUp serializes its check-and-insert internally.
type Store struct {
	db *gorm.DB

	// signUpMu covers the username-free check and the insert for the same
	// handle, closing the duplicate-name race alongside the unique index.
	signUpMu sync.Mutex
}

// Open opens (and migrates) the SQLite database at path. ":memory:" yields a
// private in-memory database, used by tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ErrDatabase, path, err)
	}
	if err := db.AutoMigrate(&UserRow{}, &TextRow{}, &FileRow{}, &ImageRow{}, &MessageRow{}); err != nil {
		return nil, fmt.Errorf("%w: migrate: %v", ErrDatabase, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return sqlDB.Close()
}

// SignUp creates a new user. Concurrent sign-ups for the same name produce
// exactly one success; the loser observes ErrUsernameTaken. The verifier is
// derived before the critical section so the lock never covers key
// stretching.
func (s *Store) SignUp(ctx context.Context, creds message.Credentials) error {
	hash, err := hashPassword(creds.Password)
	if err != nil {
		return err
	}
	s.signUpMu.Lock()
	defer s.signUpMu.Unlock()
	var count int64
	if err := s.db.WithContext(ctx).Model(&UserRow{}).
		Where("username = ?", string(creds.User)).Count(&count).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if count > 0 {
		return ErrUsernameTaken
	}
	err = s.db.WithContext(ctx).Create(&UserRow{
		Username:     string(creds.User),
		PasswordHash: hash,
	}).Error
	if err != nil {
		// The unique index backstops the check above.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return nil
}

// LogIn checks the credentials against the stored verifier.
func (s *Store) LogIn(ctx context.Context, creds message.Credentials) error {
	var user UserRow
	err := s.db.WithContext(ctx).Where("username = ?", string(creds.User)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	ok, err := verifyPassword(creds.Password, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWrongPassword
	}
	return nil
}

// RecordBroadcast writes one audit row tying the sender to the broadcast
// payload. The payload row and the message row commit as one transaction.
func (s *Store) RecordBroadcast(ctx context.Context, from message.User, data message.Data) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user UserRow
		if err := tx.Where("username = ?", string(from)).First(&user).Error; err != nil {
			return fmt.Errorf("%w: sender lookup: %v", ErrDatabase, err)
		}
		row := MessageRow{FromUserID: user.ID}
		switch data.Kind {
		case message.DataText:
			text := TextRow{Body: data.Text}
			if err := tx.Create(&text).Error; err != nil {
				return fmt.Errorf("%w: %v", ErrDatabase, err)
			}
			row.TextID = &text.ID
		case message.DataFile:
			file := FileRow{Name: data.File.Name, Bytes: data.File.Bytes}
			if err := tx.Create(&file).Error; err != nil {
				return fmt.Errorf("%w: %v", ErrDatabase, err)
			}
			row.FileID = &file.ID
		case message.DataImage:
			img := ImageRow{Bytes: data.Image.Bytes}
			if err := tx.Create(&img).Error; err != nil {
				return fmt.Errorf("%w: %v", ErrDatabase, err)
			}
			row.ImageID = &img.ID
		default:
			return fmt.Errorf("%w: unknown data kind %d", ErrDatabase, data.Kind)
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}
		return nil
	})
}
