package worker

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/GTDGit/gradeshop_api/internal/models"
)

type fakeMirror struct {
    mu       sync.Mutex
    mirrored map[int]string
    pending  []models.ColorVariant
    done     chan int
}

func newFakeMirror() *fakeMirror {
    return &fakeMirror{mirrored: map[int]string{}, done: make(chan int, 16)}
}

func (f *fakeMirror) Mirror(ctx context.Context, id int, url string) error {
    f.mu.Lock()
    f.mirrored[id] = url
    f.mu.Unlock()
    f.done <- id
    return nil
}

func (f *fakeMirror) Pending(ctx context.Context, limit int) ([]models.ColorVariant, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    out := f.pending
    f.pending = nil
    return out, nil
}

func waitFor(t *testing.T, ch <-chan int) int {
    t.Helper()
    select {
    case id := <-ch:
        return id
    case <-time.After(2 * time.Second):
        t.Fatal("timed out waiting for mirror")
        return 0
    }
}

func TestImageWorker_ProcessesEnqueuedJobs(t *testing.T) {
    m := newFakeMirror()
    w := NewImageWorker(m, 2, 8, 0, time.Second)

    ctx, cancel := context.WithCancel(context.Background())
    stopped := make(chan struct{})
    go func() {
        w.Start(ctx)
        close(stopped)
    }()

    w.Enqueue(7, "https://img.example.com/7.jpg")
    assert.Equal(t, 7, waitFor(t, m.done))

    cancel()
    <-stopped

    m.mu.Lock()
    defer m.mu.Unlock()
    assert.Equal(t, "https://img.example.com/7.jpg", m.mirrored[7])
}

func TestImageWorker_SweepQueuesPending(t *testing.T) {
    m := newFakeMirror()
    ref := "https://img.example.com/3.jpg"
    m.pending = []models.ColorVariant{{ID: 3, ImageRef: &ref, ImageStatus: models.ImagePending}}
    w := NewImageWorker(m, 1, 8, time.Hour, time.Second)

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    go w.Start(ctx)

    assert.Equal(t, 3, waitFor(t, m.done))
}

func TestImageWorker_EnqueueDropsDuplicatesAndOverflow(t *testing.T) {
    w := NewImageWorker(newFakeMirror(), 1, 1, 0, 0)

    w.Enqueue(1, "a")
    w.Enqueue(1, "a")
    w.Enqueue(2, "b")

    require.Len(t, w.queue, 1)
    job := <-w.queue
    assert.Equal(t, 1, job.colorVariantID)
    assert.False(t, w.inFlight[2])
}
