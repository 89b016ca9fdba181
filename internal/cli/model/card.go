package model

import "time"

// CardFile — вложение карточки в том виде, в каком его отдаёт сервер.
type CardFile struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	MimeType  string `json:"mime_type,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// CardVideo — видео карточки. EmbedURL заполняет сервер для встроенных ссылок.
type CardVideo struct {
	Kind      string `json:"kind"`
	URL       string `json:"url"`
	Name      string `json:"name,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	EmbedURL  string `json:"embed_url,omitempty"`
}

// Card — карточка базы знаний на стороне клиента.
type Card struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Files       []CardFile  `json:"files"`
	Videos      []CardVideo `json:"videos"`
	AuthorName  *string     `json:"author_name,omitempty"`
	Author      string      `json:"author"`
	OwnerID     int64       `json:"owner_id"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// CardInput — тело создания/изменения. nil-поля при изменении не трогаются.
type CardInput struct {
	Title       *string      `json:"title,omitempty"`
	Description *string      `json:"description,omitempty"`
	Category    *string      `json:"category,omitempty"`
	Files       *[]CardFile  `json:"files,omitempty"`
	Videos      *[]CardVideo `json:"videos,omitempty"`
	AuthorName  *string      `json:"author_name,omitempty"`
}

// Profile — ответ /api/user/me.
type Profile struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// ChangeEvent — уведомление live-канала: список карточек нужно перечитать.
type ChangeEvent struct {
	Topic string    `json:"topic"`
	Kind  string    `json:"kind"`
	ID    string    `json:"id,omitempty"`
	At    time.Time `json:"at"`
}
