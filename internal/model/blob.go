package model

import "time"

// Blob — содержимое вложения, адресуемое путём {ownerId}/{timestamp}.{ext}.
type Blob struct {
	Path        string `gorm:"primaryKey;size:255"`
	ContentType string `gorm:"not null"`
	Size        int64  `gorm:"not null"`
	Data        []byte `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
