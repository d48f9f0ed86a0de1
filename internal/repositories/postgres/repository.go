package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/evalforge/assessment-platform/internal/cache"
	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
)

type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client
}

type postgresRepository struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager

	question  repositories.QuestionRepository
	test      repositories.TestRepository
	attempt   repositories.AttemptRepository
	billing   repositories.BillingRepository
	job       repositories.JobRepository
	company   repositories.CompanyRepository
	user      repositories.UserRepository
	invite    repositories.InviteRepository
	dashboard repositories.DashboardRepository
}

// NewRepository wires all postgres repositories around one gorm handle and
// an optional redis cache.
func NewRepository(cfg RepositoryConfig) repositories.Repository {
	return newWithDB(cfg.DB, cache.NewCacheManager(cfg.RedisClient))
}

func newWithDB(db *gorm.DB, cm *cache.CacheManager) *postgresRepository {
	return &postgresRepository{
		db:           db,
		cacheManager: cm,
		question:     &questionPostgres{db: db, cacheManager: cm},
		test:         &testPostgres{db: db, cacheManager: cm},
		attempt:      &attemptPostgres{db: db},
		billing:      &billingPostgres{db: db},
		job:          &jobPostgres{db: db},
		company:      &companyPostgres{db: db},
		user:         &userPostgres{db: db},
		invite:       &invitePostgres{db: db},
		dashboard:    &dashboardPostgres{db: db, cacheManager: cm},
	}
}

// AutoMigrate creates/updates the schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Company{},
		&models.User{},
		&models.InviteToken{},
		&models.Question{},
		&models.Test{},
		&models.TestSettings{},
		&models.TestQuestion{},
		&models.TestAttempt{},
		&models.BillingRecord{},
		&models.ScheduledJob{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (r *postgresRepository) Question() repositories.QuestionRepository   { return r.question }
func (r *postgresRepository) Test() repositories.TestRepository           { return r.test }
func (r *postgresRepository) Attempt() repositories.AttemptRepository     { return r.attempt }
func (r *postgresRepository) Billing() repositories.BillingRepository     { return r.billing }
func (r *postgresRepository) Job() repositories.JobRepository             { return r.job }
func (r *postgresRepository) Company() repositories.CompanyRepository     { return r.company }
func (r *postgresRepository) User() repositories.UserRepository           { return r.user }
func (r *postgresRepository) Invite() repositories.InviteRepository       { return r.invite }
func (r *postgresRepository) Dashboard() repositories.DashboardRepository { return r.dashboard }

func (r *postgresRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newWithDB(tx, r.cacheManager))
	})
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (r *postgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
