package worker

import (
    "context"
    "sync"
    "time"

    "github.com/rs/zerolog/log"

    "github.com/GTDGit/gradeshop_api/internal/models"
)

// ImageMirror is the work performed for each queued image.
type ImageMirror interface {
    Mirror(ctx context.Context, colorVariantID int, sourceURL string) error
    Pending(ctx context.Context, limit int) ([]models.ColorVariant, error)
}

type imageJob struct {
    colorVariantID int
    sourceURL      string
}

// ImageWorker mirrors color variant images in the background. Jobs arrive
// through Enqueue after an import commits; a periodic sweep picks up
// anything still pending, e.g. jobs dropped on a full queue or a restart.
type ImageWorker struct {
    mirror       ImageMirror
    queue        chan imageJob
    workers      int
    interval     time.Duration
    fetchTimeout time.Duration

    mu       sync.Mutex
    inFlight map[int]bool
}

// NewImageWorker constructs an ImageWorker.
func NewImageWorker(mirror ImageMirror, workers, queueSize int, interval, fetchTimeout time.Duration) *ImageWorker {
    if workers < 1 {
        workers = 1
    }
    if queueSize < 1 {
        queueSize = 1
    }
    return &ImageWorker{
        mirror:       mirror,
        queue:        make(chan imageJob, queueSize),
        workers:      workers,
        interval:     interval,
        fetchTimeout: fetchTimeout,
        inFlight:     make(map[int]bool),
    }
}

// Enqueue schedules one image without blocking. A full queue drops the job;
// the sweep retries it later.
func (w *ImageWorker) Enqueue(colorVariantID int, sourceURL string) {
    if !w.claim(colorVariantID) {
        return
    }
    select {
    case w.queue <- imageJob{colorVariantID: colorVariantID, sourceURL: sourceURL}:
    default:
        w.release(colorVariantID)
        log.Warn().Int("color_variant_id", colorVariantID).Msg("image queue full, leaving for sweep")
    }
}

// Start runs the worker pool and the sweep loop until ctx is cancelled.
func (w *ImageWorker) Start(ctx context.Context) {
    log.Info().Int("workers", w.workers).Dur("interval", w.interval).Msg("Starting image worker")

    var wg sync.WaitGroup
    for i := 0; i < w.workers; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            w.consume(ctx)
        }()
    }

    // Run immediately on start
    w.sweep(ctx)

    if w.interval > 0 {
        ticker := time.NewTicker(w.interval)
        defer ticker.Stop()
    loop:
        for {
            select {
            case <-ticker.C:
                w.sweep(ctx)
            case <-ctx.Done():
                break loop
            }
        }
    } else {
        <-ctx.Done()
    }

    wg.Wait()
    log.Info().Msg("Image worker stopped")
}

func (w *ImageWorker) consume(ctx context.Context) {
    for {
        select {
        case <-ctx.Done():
            return
        case job := <-w.queue:
            w.process(ctx, job)
        }
    }
}

func (w *ImageWorker) process(ctx context.Context, job imageJob) {
    defer w.release(job.colorVariantID)

    jobCtx := ctx
    if w.fetchTimeout > 0 {
        var cancel context.CancelFunc
        jobCtx, cancel = context.WithTimeout(ctx, w.fetchTimeout)
        defer cancel()
    }

    start := time.Now()
    if err := w.mirror.Mirror(jobCtx, job.colorVariantID, job.sourceURL); err != nil {
        log.Error().Err(err).Int("color_variant_id", job.colorVariantID).Msg("Failed to mirror image")
        return
    }
    log.Debug().Int("color_variant_id", job.colorVariantID).Dur("duration", time.Since(start)).Msg("Image mirrored")
}

func (w *ImageWorker) sweep(ctx context.Context) {
    pending, err := w.mirror.Pending(ctx, cap(w.queue))
    if err != nil {
        log.Error().Err(err).Msg("Failed to list pending images")
        return
    }
    for _, cv := range pending {
        if cv.ImageRef == nil || *cv.ImageRef == "" {
            continue
        }
        w.Enqueue(cv.ID, *cv.ImageRef)
    }
    if len(pending) > 0 {
        log.Info().Int("pending", len(pending)).Msg("Image sweep queued pending images")
    }
}

// claim marks a color variant as queued; false means it already is.
func (w *ImageWorker) claim(id int) bool {
    w.mu.Lock()
    defer w.mu.Unlock()
    if w.inFlight[id] {
        return false
    }
    w.inFlight[id] = true
    return true
}

func (w *ImageWorker) release(id int) {
    w.mu.Lock()
    delete(w.inFlight, id)
    w.mu.Unlock()
}
