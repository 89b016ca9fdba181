package model

import "time"

// User — учётная запись. DisplayName служит справочником профилей для имени автора карточки.
type User struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Login       string `gorm:"uniqueIndex;not null"`
	Password    string `gorm:"not null"` // bcrypt-хеш
	DisplayName string

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// RoleAssignment — строка назначения роли. У аккаунта может быть несколько строк.
type RoleAssignment struct {
	UserID int64  `gorm:"primaryKey"`
	Role   string `gorm:"primaryKey;size:16"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
