package store

import "time"

// UserRow is a registered identity. Usernames are unique; the verifier is an
// Argon2id PHC string.
type UserRow struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

func (UserRow) TableName() string { return "users" }

// TextRow holds the body of a broadcast text message.
type TextRow struct {
	ID   uint `gorm:"primaryKey"`
	Body string
}

func (TextRow) TableName() string { return "texts" }

// FileRow holds a broadcast file payload.
type FileRow struct {
	ID    uint `gorm:"primaryKey"`
	Name  string
	Bytes []byte
}

func (FileRow) TableName() string { return "files" }

// ImageRow holds a broadcast image payload.
type ImageRow struct {
	ID    uint `gorm:"primaryKey"`
	Bytes []byte
}

func (ImageRow) TableName() string { return "images" }

// MessageRow records one broadcast. Exactly one payload reference is set,
// enforced by the check constraint; Arrived is assigned by the store.
type MessageRow struct {
	ID         uint      `gorm:"primaryKey"`
	FromUserID uint      `gorm:"not null"`
	FromUser   UserRow   `gorm:"foreignKey:FromUserID"`
	TextID     *uint     `gorm:"check:chk_one_payload,(text_id IS NOT NULL) + (file_id IS NOT NULL) + (image_id IS NOT NULL) = 1"`
	Text       *TextRow  `gorm:"foreignKey:TextID"`
	FileID     *uint
	File       *FileRow  `gorm:"foreignKey:FileID"`
	ImageID    *uint
	Image      *ImageRow `gorm:"foreignKey:ImageID"`
	Arrived    time.Time `gorm:"autoCreateTime"`
}

func (MessageRow) TableName() string { return "messages" }
