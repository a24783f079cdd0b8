package models

import "time"

// Document is one JSON document of a namespace. Revision increases by one on every write.
type Document struct {
	Namespace string `gorm:"primaryKey;size:32"`
	Key       string `gorm:"primaryKey;column:doc_key;size:64"`
	Body      string `gorm:"type:jsonb;not null"`
	Revision  int64  `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
