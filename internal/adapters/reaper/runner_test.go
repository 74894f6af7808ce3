package reaper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/pageforge/ocrworker/internal/domain/model"
	"github.com/pageforge/ocrworker/internal/mocks"
)

func TestRunnerReclaimsOnEachPass(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := mocks.NewMockRecoveryStore(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reclaimed := make(chan struct{})
	repo.EXPECT().ReclaimStale(gomock.Any(), 10*time.Minute).
		DoAndReturn(func(context.Context, time.Duration) (int64, error) {
			select {
			case reclaimed <- struct{}{}:
			default:
			}
			return 2, nil
		}).MinTimes(1)
	repo.EXPECT().Stats(gomock.Any()).
		Return(&model.JobStats{Pending: 5, Processing: 1}, nil).AnyTimes()

	r, err := NewRunner(RunnerOptions{
		Repo:           repo,
		Interval:       10 * time.Millisecond,
		StaleThreshold: 10 * time.Minute,
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-reclaimed:
	case <-time.After(2 * time.Second):
		t.Fatal("reclaim pass never ran")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestRunnerSurvivesReclaimErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := mocks.NewMockRecoveryStore(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan struct{}, 4)
	repo.EXPECT().ReclaimStale(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, time.Duration) (int64, error) {
			select {
			case calls <- struct{}{}:
			default:
			}
			return 0, errors.New("db unavailable")
		}).MinTimes(2)
	repo.EXPECT().Stats(gomock.Any()).
		Return(nil, errors.New("db unavailable")).AnyTimes()

	r, err := NewRunner(RunnerOptions{
		Repo:     repo,
		Interval: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// Two passes prove the loop keeps going after a failure.
	for range 2 {
		select {
		case <-calls:
		case <-time.After(2 * time.Second):
			t.Fatal("reaper stopped after an error")
		}
	}
	cancel()
	require.NoError(t, <-done)
}

func TestNewRunnerValidation(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)
}
