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

var testSortable = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"title":      true,
	"difficulty": true,
	"status":     true,
}

type testPostgres struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func (t *testPostgres) Create(ctx context.Context, test *models.Test) error {
	if err := t.db.WithContext(ctx).Create(test).Error; err != nil {
		return fmt.Errorf("failed to create test: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, t.cacheManager.Test, fmt.Sprintf("tenant:%s:*", test.TenantID))
	cache.SafeInvalidatePattern(ctx, t.cacheManager.Test, "list:*")
	return nil
}

func (t *testPostgres) GetByID(ctx context.Context, id uint) (*models.Test, error) {
	var test models.Test
	if err := t.db.WithContext(ctx).First(&test, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("test %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return &test, nil
}

func (t *testPostgres) GetByIDWithDetails(ctx context.Context, id uint) (*models.Test, error) {
	var test models.Test
	if err := t.db.WithContext(ctx).
		Preload("Settings").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("test_questions.\"order\" ASC")
		}).
		Preload("Questions.Question").
		First(&test, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("test %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get test with details: %w", err)
	}
	return &test, nil
}

func (t *testPostgres) Update(ctx context.Context, test *models.Test) error {
	if err := t.db.WithContext(ctx).Save(test).Error; err != nil {
		return fmt.Errorf("failed to update test: %w", err)
	}

	cache.InvalidateTestCache(ctx, t.cacheManager, test.ID, test.TenantID)
	return nil
}

func (t *testPostgres) SoftDelete(ctx context.Context, id uint) error {
	var test models.Test
	if err := t.db.WithContext(ctx).Select("id", "tenant_id").First(&test, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("test %d: %w", id, repositories.ErrNotFound)
		}
		return fmt.Errorf("failed to get test before delete: %w", err)
	}

	if err := t.db.WithContext(ctx).Delete(&models.Test{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}

	cache.InvalidateTestCache(ctx, t.cacheManager, id, test.TenantID)
	return nil
}

func (t *testPostgres) List(ctx context.Context, principal models.Principal, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	params := filters.List.Normalize(10, testSortable)

	base := t.db.WithContext(ctx).
		Model(&models.Test{}).
		Scopes(authz.TenantScope(principal))

	if filters.Status != nil {
		base = base.Where("status = ?", *filters.Status)
	}
	if filters.Difficulty != nil {
		base = base.Where("difficulty = ?", *filters.Difficulty)
	}
	if filters.Type != nil {
		base = base.Where("type = ?", *filters.Type)
	}
	if filters.DateFrom != nil {
		base = base.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		base = base.Where("created_at <= ?", *filters.DateTo)
	}
	base = base.Scopes(authz.SearchScope(params.Search, "title", "description"))

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tests: %w", err)
	}

	var tests []*models.Test
	if err := base.Scopes(authz.PageScope(params)).Find(&tests).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list tests: %w", err)
	}
	return tests, total, nil
}

// UpdateStatusIf is the conditional write guarding the status machine
// against concurrent double-transitions.
func (t *testPostgres) UpdateStatusIf(ctx context.Context, id uint, from, to models.TestStatus) (bool, error) {
	res := t.db.WithContext(ctx).
		Model(&models.Test{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update test status: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		cache.SafeDelete(ctx, t.cacheManager.Test, fmt.Sprintf("id:%d", id), fmt.Sprintf("details:%d", id))
		cache.SafeInvalidatePattern(ctx, t.cacheManager.Test, "list:*")
	}
	return res.RowsAffected > 0, nil
}

// AddQuestion links a question and refreshes the derived question count.
// The unique (test_id, question_id) index rejects duplicates.
func (t *testPostgres) AddQuestion(ctx context.Context, tq *models.TestQuestion) error {
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tq).Error; err != nil {
			return fmt.Errorf("failed to add question to test: %w", err)
		}
		return t.syncTotalQuestions(tx, tq.TestID)
	})
	if err != nil {
		return err
	}

	cache.SafeDelete(ctx, t.cacheManager.Test, fmt.Sprintf("id:%d", tq.TestID), fmt.Sprintf("details:%d", tq.TestID))
	return nil
}

func (t *testPostgres) RemoveQuestion(ctx context.Context, testID, questionID uint) error {
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("test_id = ? AND question_id = ?", testID, questionID).
			Delete(&models.TestQuestion{})
		if res.Error != nil {
			return fmt.Errorf("failed to remove question from test: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("test question %d/%d: %w", testID, questionID, repositories.ErrNotFound)
		}
		return t.syncTotalQuestions(tx, testID)
	})
	if err != nil {
		return err
	}

	cache.SafeDelete(ctx, t.cacheManager.Test, fmt.Sprintf("id:%d", testID), fmt.Sprintf("details:%d", testID))
	return nil
}

func (t *testPostgres) GetQuestions(ctx context.Context, testID uint) ([]*models.TestQuestion, error) {
	var questions []*models.TestQuestion
	if err := t.db.WithContext(ctx).
		Preload("Question").
		Where("test_id = ?", testID).
		Order("\"order\" ASC").
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get test questions: %w", err)
	}
	return questions, nil
}

func (t *testPostgres) ReorderQuestions(ctx context.Context, testID uint, orders []repositories.QuestionOrder) error {
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, o := range orders {
			if err := tx.Model(&models.TestQuestion{}).
				Where("test_id = ? AND question_id = ?", testID, o.QuestionID).
				Update("order", o.Order).Error; err != nil {
				return fmt.Errorf("failed to reorder question %d: %w", o.QuestionID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.SafeDelete(ctx, t.cacheManager.Test, fmt.Sprintf("details:%d", testID))
	return nil
}

func (t *testPostgres) Stats(ctx context.Context, id uint) (*repositories.TestStats, error) {
	cacheKey := fmt.Sprintf("test:%d:stats", id)
	var stats repositories.TestStats

	err := t.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var result repositories.TestStats

		type attemptAgg struct {
			Total     int64
			Completed int64
			AvgScore  *float64
			Passed    int64
		}
		var agg attemptAgg
		if err := t.db.WithContext(ctx).
			Model(&models.TestAttempt{}).
			Select("COUNT(*) AS total, "+
				"COUNT(*) FILTER (WHERE status = ?) AS completed, "+
				"AVG(percentage) FILTER (WHERE status = ?) AS avg_score, "+
				"COUNT(*) FILTER (WHERE passed) AS passed",
				models.AttemptCompleted, models.AttemptCompleted).
			Where("test_id = ?", id).
			Scan(&agg).Error; err != nil {
			return nil, fmt.Errorf("failed to aggregate attempts: %w", err)
		}

		result.TotalAttempts = int(agg.Total)
		result.CompletedAttempts = int(agg.Completed)
		if agg.AvgScore != nil {
			result.AverageScore = *agg.AvgScore
		}
		if agg.Completed > 0 {
			result.PassRate = float64(agg.Passed) / float64(agg.Completed) * 100
		}

		type questionAgg struct {
			Count  int64
			Points *int64
		}
		var qa questionAgg
		if err := t.db.WithContext(ctx).
			Model(&models.TestQuestion{}).
			Select("COUNT(*) AS count, SUM(COALESCE(test_questions.points, questions.points)) AS points").
			Joins("JOIN questions ON questions.id = test_questions.question_id").
			Where("test_questions.test_id = ?", id).
			Scan(&qa).Error; err != nil {
			return nil, fmt.Errorf("failed to aggregate test questions: %w", err)
		}
		result.QuestionCount = int(qa.Count)
		if qa.Points != nil {
			result.TotalPoints = int(*qa.Points)
		}
		return &result, nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// syncTotalQuestions keeps the derived count consistent with the question
// set inside the same transaction as the mutation.
func (t *testPostgres) syncTotalQuestions(tx *gorm.DB, testID uint) error {
	var count int64
	if err := tx.Model(&models.TestQuestion{}).
		Where("test_id = ?", testID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count test questions: %w", err)
	}
	if err := tx.Model(&models.Test{}).
		Where("id = ?", testID).
		Update("total_questions", count).Error; err != nil {
		return fmt.Errorf("failed to sync total questions: %w", err)
	}
	return nil
}
