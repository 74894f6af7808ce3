package workerpool

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/pageforge/ocrworker/internal/domain/model"
	"github.com/pageforge/ocrworker/internal/engine"
	"github.com/pageforge/ocrworker/internal/mocks"
	"github.com/pageforge/ocrworker/internal/processor"
)

type noopEngine struct{}

func (noopEngine) Name() string                     { return "noop" }
func (noopEngine) Version() string                  { return "0" }
func (noopEngine) Warmup(ctx context.Context) error { return nil }
func (noopEngine) Close() error                     { return nil }

func (noopEngine) DetectAndRecognize(ctx context.Context, img image.Image, opts engine.Options) ([]engine.Region, error) {
	return nil, nil
}

type noopRasterizer struct{}

func (noopRasterizer) PageCount(ctx context.Context, doc []byte) (int, error) { return 1, nil }

func (noopRasterizer) RenderPage(ctx context.Context, doc []byte, page, dpi int) (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, 1, 1)), nil
}

func newTestRunner(t *testing.T, jobs *mocks.MockJobStore, docs *mocks.MockDocumentStore, workers int) *Runner {
	t.Helper()
	proc, err := processor.New(processor.Options{
		Jobs:       jobs,
		Documents:  docs,
		Engine:     noopEngine{},
		Rasterizer: noopRasterizer{},
	})
	require.NoError(t, err)

	r, err := NewRunner(RunnerOptions{
		Jobs:         jobs,
		Processor:    proc,
		Workers:      workers,
		PollInterval: 5 * time.Millisecond,
		WorkerPrefix: "testhost",
	})
	require.NoError(t, err)
	return r
}

func TestRunnerProcessesClaimedJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	jobs := mocks.NewMockJobStore(ctrl)
	docs := mocks.NewMockDocumentStore(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := &model.Job{ID: "job-1", DocumentKey: "documents/abc.pdf", OwnerID: "abc", AttemptCount: 1}
	processed := make(chan struct{})

	jobs.EXPECT().ClaimNext(gomock.Any(), "testhost-1").Return(job, nil)
	// Losing the claimed row before processing is the shortest valid path
	// through the processor.
	jobs.EXPECT().MarkProcessing(gomock.Any(), "job-1").
		DoAndReturn(func(context.Context, string) (bool, error) {
			close(processed)
			return false, nil
		})
	jobs.EXPECT().ClaimNext(gomock.Any(), "testhost-1").
		Return(nil, model.ErrNoJobsAvailable).AnyTimes()

	done := make(chan error, 1)
	go func() { done <- newTestRunner(t, jobs, docs, 1).Run(ctx) }()

	select {
	case <-processed:
	case <-time.After(2 * time.Second):
		t.Fatal("job was never processed")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestRunnerStopsOnClaimError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	jobs := mocks.NewMockJobStore(ctrl)
	docs := mocks.NewMockDocumentStore(ctrl)

	claimErr := model.NewInfrastructureError("claim next job", errors.New("connection refused"))
	jobs.EXPECT().ClaimNext(gomock.Any(), gomock.Any()).Return(nil, claimErr).MinTimes(1)

	err := newTestRunner(t, jobs, docs, 2).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "claim next")
}

func TestRunnerIdlePollingShutsDownCleanly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	jobs := mocks.NewMockJobStore(ctrl)
	docs := mocks.NewMockDocumentStore(ctrl)

	jobs.EXPECT().ClaimNext(gomock.Any(), gomock.Any()).
		Return(nil, model.ErrNoJobsAvailable).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestRunner(t, jobs, docs, 3).Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not shut down")
	}
}

func TestNewRunnerValidation(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	_, err = NewRunner(RunnerOptions{Jobs: mocks.NewMockJobStore(ctrl)})
	require.Error(t, err)
}
