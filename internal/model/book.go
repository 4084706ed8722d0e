package model

type Book struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	Title         string  `gorm:"size:255;not null;index" json:"title"`
	Author        string  `gorm:"size:255;not null;index" json:"author"`
	PublishedDate Date    `gorm:"type:date;not null" json:"published_date"`
	Summary       *string `gorm:"type:text" json:"summary"`
	Genre         string  `gorm:"size:100;not null" json:"genre"`
}

// PaginatedBooks is one page of the book collection.
type PaginatedBooks struct {
	Total int64  `json:"total"`
	Items []Book `json:"items"`
	Page  int    `json:"page"`
	Size  int    `json:"size"`
	Pages int    `json:"pages"`
}
