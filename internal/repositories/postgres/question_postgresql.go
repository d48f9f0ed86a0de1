package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/evalforge/assessment-platform/internal/authz"
	"github.com/evalforge/assessment-platform/internal/cache"
	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
)

var questionSortable = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"difficulty": true,
	"type":       true,
	"points":     true,
}

type questionPostgres struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func (q *questionPostgres) Create(ctx context.Context, question *models.Question) error {
	if err := q.db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, q.cacheManager.Question, fmt.Sprintf("tenant:%s:*", question.TenantID))
	cache.SafeInvalidatePattern(ctx, q.cacheManager.Question, "list:*")
	return nil
}

func (q *questionPostgres) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	cacheKey := fmt.Sprintf("id:%d", id)
	var question models.Question

	err := q.cacheManager.Question.CacheOrExecute(ctx, cacheKey, &question, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var row models.Question
		if err := q.db.WithContext(ctx).Where("is_active = ?", true).First(&row, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("question %d: %w", id, repositories.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to get question: %w", err)
		}
		return &row, nil
	})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *questionPostgres) GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var questions []*models.Question
	if err := q.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions by ids: %w", err)
	}
	return questions, nil
}

func (q *questionPostgres) Update(ctx context.Context, question *models.Question) error {
	if err := q.db.WithContext(ctx).Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, question.ID, question.TenantID)
	return nil
}

// SoftDelete flips is_active; questions are never hard-deleted.
func (q *questionPostgres) SoftDelete(ctx context.Context, id uint) error {
	var question models.Question
	if err := q.db.WithContext(ctx).Select("id", "tenant_id").First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("question %d: %w", id, repositories.ErrNotFound)
		}
		return fmt.Errorf("failed to get question before delete: %w", err)
	}

	if err := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", id).
		Update("is_active", false).Error; err != nil {
		return fmt.Errorf("failed to soft delete question: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, id, question.TenantID)
	return nil
}

func (q *questionPostgres) List(ctx context.Context, principal models.Principal, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	params := filters.List.Normalize(20, questionSortable)

	base := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("is_active = ?", true).
		Scopes(authz.TenantScope(principal))

	if filters.Type != nil {
		base = base.Where("type = ?", *filters.Type)
	}
	if filters.Difficulty != nil {
		base = base.Where("difficulty = ?", *filters.Difficulty)
	}
	if filters.Domain != nil {
		base = base.Where("domain = ?", *filters.Domain)
	}
	if len(filters.Tags) > 0 {
		base = base.Where("tags @> ?", toJSONArray(filters.Tags))
	}
	if filters.DateFrom != nil {
		base = base.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		base = base.Where("created_at <= ?", *filters.DateTo)
	}
	base = base.Scopes(authz.SearchScope(params.Search, "text", "domain", "sub_domain"))

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	var questions []*models.Question
	if err := base.Scopes(authz.PageScope(params)).Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, total, nil
}

// Stats aggregates usage across test_questions and completed attempts.
func (q *questionPostgres) Stats(ctx context.Context, id uint) (*repositories.QuestionStats, error) {
	cacheKey := fmt.Sprintf("question:%d:stats", id)
	var stats repositories.QuestionStats

	err := q.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var result repositories.QuestionStats

		var usage int64
		if err := q.db.WithContext(ctx).
			Model(&models.TestQuestion{}).
			Where("question_id = ?", id).
			Count(&usage).Error; err != nil {
			return nil, fmt.Errorf("failed to count question usage: %w", err)
		}
		result.UsageCount = int(usage)

		var avg *float64
		if err := q.db.WithContext(ctx).
			Model(&models.TestAttempt{}).
			Select("AVG(test_attempts.percentage)").
			Joins("JOIN test_questions ON test_questions.test_id = test_attempts.test_id").
			Where("test_questions.question_id = ? AND test_attempts.status = ?", id, models.AttemptCompleted).
			Scan(&avg).Error; err != nil {
			return nil, fmt.Errorf("failed to compute question average score: %w", err)
		}
		if avg != nil {
			result.AverageScore = *avg
		}
		return &result, nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
