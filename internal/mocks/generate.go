// Package mocks provides mock implementations for testing the job processing
// system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the port interfaces in internal/core. To regenerate after interface
// changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	store := mocks.NewMockJobStore(ctrl)
//	store.EXPECT().ClaimNext(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

// Mock for the job table port: ClaimNext, MarkProcessing, MarkSucceeded,
// MarkFailed, GetByID.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_store_mock.go github.com/pageforge/ocrworker/internal/core JobStore

// Mock for the recovery port: ReclaimStale, Requeue, ListFailed, Stats.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=recovery_store_mock.go github.com/pageforge/ocrworker/internal/core RecoveryStore

// Mock for the object storage port: Fetch, Put, Exists.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=document_store_mock.go github.com/pageforge/ocrworker/internal/core DocumentStore
