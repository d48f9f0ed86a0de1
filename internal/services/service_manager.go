package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/evalforge/assessment-platform/internal/events"
	"github.com/evalforge/assessment-platform/internal/repositories"
	"github.com/evalforge/assessment-platform/internal/validator"
)

// Dependencies carries everything the services need. Publisher and
// AIClient may be nil; the affected services degrade instead of failing.
type Dependencies struct {
	Repo      repositories.Repository
	Logger    *slog.Logger
	Validator *validator.Validator
	Publisher events.EventPublisher
	AIClient  CompletionClient
}

type serviceManager struct {
	deps Dependencies

	questionService     QuestionService
	testService         TestService
	attemptService      AttemptService
	billingService      BillingService
	companyService      CompanyService
	aiService           AIService
	jobService          JobService
	dashboardService    DashboardService
	importExportService ImportExportService

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(deps Dependencies) ServiceManager {
	return &serviceManager{deps: deps}
}

// Initialize constructs every service and verifies the storage layer is
// reachable. It is idempotent.
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.deps.Logger.Info("initializing service manager")

	sm.jobService = NewJobService(sm.deps.Repo, sm.deps.Logger, sm.deps.Publisher)
	sm.questionService = NewQuestionService(sm.deps.Repo, sm.deps.Logger, sm.deps.Validator, sm.deps.Publisher)
	sm.testService = NewTestService(sm.deps.Repo, sm.deps.Logger, sm.deps.Validator, sm.deps.Publisher)
	sm.attemptService = NewAttemptService(sm.deps.Repo, sm.deps.Logger, sm.deps.Validator, sm.deps.Publisher, sm.jobService)
	sm.billingService = NewBillingService(sm.deps.Repo, sm.deps.Logger, sm.deps.Validator, sm.deps.Publisher, sm.jobService)
	sm.companyService = NewCompanyService(sm.deps.Repo, sm.deps.Logger, sm.deps.Validator, sm.deps.Publisher)
	sm.aiService = NewAIService(sm.deps.Logger, sm.deps.Validator, sm.deps.Publisher, sm.deps.AIClient)
	sm.dashboardService = NewDashboardService(sm.deps.Repo, sm.deps.Logger)
	sm.importExportService = NewImportExportService(sm.questionService, sm.deps.Repo, sm.deps.Logger)

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("storage is not reachable: %w", err)
	}

	sm.initialized = true
	sm.deps.Logger.Info("service manager initialized")
	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("shutting down service manager")

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.deps.Logger.Error("failed to close event publisher", "error", err)
		}
	}
	if err := sm.deps.Repo.Close(); err != nil {
		return fmt.Errorf("failed to close repository: %w", err)
	}

	sm.shutdown = true
	return nil
}

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager is not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}
	return sm.deps.Repo.Ping(ctx)
}

func (sm *serviceManager) Question() QuestionService         { return sm.questionService }
func (sm *serviceManager) Test() TestService                 { return sm.testService }
func (sm *serviceManager) Attempt() AttemptService           { return sm.attemptService }
func (sm *serviceManager) Billing() BillingService           { return sm.billingService }
func (sm *serviceManager) Company() CompanyService           { return sm.companyService }
func (sm *serviceManager) AI() AIService                     { return sm.aiService }
func (sm *serviceManager) Job() JobService                   { return sm.jobService }
func (sm *serviceManager) Dashboard() DashboardService       { return sm.dashboardService }
func (sm *serviceManager) ImportExport() ImportExportService { return sm.importExportService }
