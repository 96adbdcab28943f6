package classify

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// Retriever returns ranked candidate ticket ids for a query. The ranking
// quality is a collaborator concern; callers must still pass every candidate
// through the access guard before surfacing it.
type Retriever interface {
	Candidates(ctx context.Context, query string, topK int) ([]int64, error)
}

// KeywordRetriever is the shipped implementation: case-insensitive keyword
// match over ticket titles and descriptions.
type KeywordRetriever struct {
	db *gorm.DB
}

func NewKeywordRetriever(db *gorm.DB) *KeywordRetriever {
	return &KeywordRetriever{db: db}
}

func (r *KeywordRetriever) Candidates(ctx context.Context, query string, topK int) ([]int64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if topK <= 0 || topK > 100 {
		topK = 20
	}

	pattern := "%" + strings.ToLower(query) + "%"
	var ids []int64
	err := r.db.WithContext(ctx).
		Table("tickets").
		Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern).
		Order("created_at DESC").
		Limit(topK).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
