package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/agentchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockPendingSourceRepository is a mock implementation of PendingSourceRepository
type MockPendingSourceRepository struct {
	mock.Mock
}

func (m *MockPendingSourceRepository) ListPending(ctx context.Context, limit int) ([]*domain.KnowledgeSource, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeSource), args.Error(1)
}

// MockSourceIngestor is a mock implementation of SourceIngestor
type MockSourceIngestor struct {
	mock.Mock
}

func (m *MockSourceIngestor) Ingest(ctx context.Context, sourceID string) error {
	args := m.Called(ctx, sourceID)
	return args.Error(0)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func pendingSource(id, name string) *domain.KnowledgeSource {
	return &domain.KnowledgeSource{
		ID:      id,
		AgentID: "agent-1",
		Name:    name,
		Type:    domain.SourceTypeText,
		Status:  domain.SourceStatusPending,
	}
}

// TestIngestionWorker_ProcessJobs_NoPendingSources tests when nothing is queued
func TestIngestionWorker_ProcessJobs_NoPendingSources(t *testing.T) {
	mockRepo := new(MockPendingSourceRepository)
	mockIngestor := new(MockSourceIngestor)

	mockRepo.On("ListPending", mock.Anything, PendingBatchSize).Return([]*domain.KnowledgeSource{}, nil)

	worker := NewIngestionWorker(mockRepo, mockIngestor)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockIngestor.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

// TestIngestionWorker_ProcessJobs_Success tests successful source ingestion
func TestIngestionWorker_ProcessJobs_Success(t *testing.T) {
	mockRepo := new(MockPendingSourceRepository)
	mockIngestor := new(MockSourceIngestor)

	sources := []*domain.KnowledgeSource{
		pendingSource("src-1", "FAQ"),
		pendingSource("src-2", "Policies"),
	}

	mockRepo.On("ListPending", mock.Anything, PendingBatchSize).Return(sources, nil)
	mockIngestor.On("Ingest", mock.Anything, "src-1").Return(nil)
	mockIngestor.On("Ingest", mock.Anything, "src-2").Return(nil)

	worker := NewIngestionWorker(mockRepo, mockIngestor)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockIngestor.AssertExpectations(t)
}

// TestIngestionWorker_ProcessJobs_FailureContinues tests that one failed
// source does not block the rest of the batch
func TestIngestionWorker_ProcessJobs_FailureContinues(t *testing.T) {
	mockRepo := new(MockPendingSourceRepository)
	mockIngestor := new(MockSourceIngestor)

	sources := []*domain.KnowledgeSource{
		pendingSource("src-1", "FAQ"),
		pendingSource("src-2", "Policies"),
	}

	mockRepo.On("ListPending", mock.Anything, PendingBatchSize).Return(sources, nil)
	mockIngestor.On("Ingest", mock.Anything, "src-1").Return(errors.New("provider unavailable"))
	mockIngestor.On("Ingest", mock.Anything, "src-2").Return(nil)

	worker := NewIngestionWorker(mockRepo, mockIngestor)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockIngestor.AssertExpectations(t)
}

// TestIngestionWorker_ProcessJobs_RepositoryError tests repository error handling
func TestIngestionWorker_ProcessJobs_RepositoryError(t *testing.T) {
	mockRepo := new(MockPendingSourceRepository)
	mockIngestor := new(MockSourceIngestor)

	mockRepo.On("ListPending", mock.Anything, PendingBatchSize).Return(nil, errors.New("database error"))

	worker := NewIngestionWorker(mockRepo, mockIngestor)
	err := worker.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch pending sources")
	mockRepo.AssertExpectations(t)
}
