package model

import "time"

// Category — категория карточки. Управляет фильтрацией, не доступом.
type Category string

const (
	CategoryPrinter    Category = "Printer"
	CategoryOrders     Category = "Orders"
	CategorySAT        Category = "SAT"
	CategoryNFCE       Category = "NFCE"
	CategoryFiscalData Category = "Fiscal-Data"
	CategorySystem     Category = "System"
	CategoryTablet     Category = "Tablet"
	CategoryExtras     Category = "Extras"
)

// Categories — закрытый перечень категорий в порядке отображения.
var Categories = []Category{
	CategoryPrinter,
	CategoryOrders,
	CategorySAT,
	CategoryNFCE,
	CategoryFiscalData,
	CategorySystem,
	CategoryTablet,
	CategoryExtras,
}

// Valid сообщает, входит ли категория в перечень.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// VideoKind — способ подключения видео к карточке.
type VideoKind string

const (
	VideoUpload VideoKind = "upload"
	VideoEmbed  VideoKind = "embed"
)

// CardFile — метаданные вложенного файла. Сами байты живут во внешнем blob-хранилище.
type CardFile struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// CardVideo — ссылка на загруженное или встроенное видео.
type CardVideo struct {
	Kind      VideoKind `json:"kind"`
	URL       string    `json:"url"`
	Name      string    `json:"name,omitempty"`
	Thumbnail string    `json:"thumbnail,omitempty"`
}

// Card — серверная модель карточки базы знаний.
type Card struct {
	ID          string   `gorm:"primaryKey;type:uuid"`
	Title       string   `gorm:"not null"`
	Description string   `gorm:"not null"`
	Category    Category `gorm:"not null;index"`

	Files  []CardFile  `gorm:"serializer:json;type:text"`
	Videos []CardVideo `gorm:"serializer:json;type:text"`

	// AuthorName переопределяет отображаемое имя автора; если пусто, берём из профиля владельца.
	AuthorName *string
	OwnerID    int64 `gorm:"not null;index"` // ссылка на users.id, не переназначается

	CreatedAt time.Time `gorm:"autoCreateTime:false;not null;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false;not null"`
}
