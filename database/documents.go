package database

import (
	"context"
	"errors"
	"fmt"

	"grooby/docstore"
	"grooby/models"

	"gorm.io/gorm"
)

// DocumentStore is a docstore.Store on the documents table. The db must be opened with TranslateError so that
// unique violations surface as gorm.ErrDuplicatedKey.
type DocumentStore struct {
	db *gorm.DB
}

func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Get(ctx context.Context, namespace, key string) (docstore.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND doc_key = ?", namespace, key).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("failed to read document %s/%s: %w", namespace, key, err)
	}
	return docstore.Document{Body: []byte(doc.Body), Revision: doc.Revision}, nil
}

func (s *DocumentStore) Put(ctx context.Context, namespace, key string, body []byte, expected int64) (int64, error) {
	db := s.db.WithContext(ctx)
	if expected == 0 {
		doc := models.Document{Namespace: namespace, Key: key, Body: string(body), Revision: 1}
		if err := db.Create(&doc).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return 0, docstore.ErrConflict
			}
			return 0, fmt.Errorf("failed to create document %s/%s: %w", namespace, key, err)
		}
		return 1, nil
	}

	res := db.Model(&models.Document{}).
		Where("namespace = ? AND doc_key = ? AND revision = ?", namespace, key, expected).
		Updates(map[string]interface{}{"body": string(body), "revision": expected + 1})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update document %s/%s: %w", namespace, key, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, docstore.ErrConflict
	}
	return expected + 1, nil
}
