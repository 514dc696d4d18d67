package workers

import (
	"log"
	"sync"

	"github.com/heritagewatch/monitorbackend/utils"
)

// PreviewJob asks for a display preview of one cached baseline binary.
type PreviewJob struct {
	BaselineID string
	Filename   string
	Blob       []byte
}

// PreviewSink receives finished previews, keyed by baseline id. Returns
// false when the binary the preview belongs to is no longer cached.
type PreviewSink interface {
	SetPreview(id, dataURI string) bool
}

// PreviewGenerator downscales baseline uploads into inline data-URI previews
// on a small worker pool, off the upload request path. The raw payload is
// cached before a job is ever queued, so a slow or failed preview never
// affects binary availability.
type PreviewGenerator struct {
	JobQueue chan PreviewJob
	Sink     PreviewSink
	MaxSize  int
	Wg       sync.WaitGroup
	StopChan chan struct{}
	Pending  map[string]bool
	Mutex    sync.Mutex
}

func NewPreviewGenerator(sink PreviewSink, maxSize, queueSize, numWorkers int) *PreviewGenerator {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 50
	}
	gen := &PreviewGenerator{
		JobQueue: make(chan PreviewJob, queueSize),
		Sink:     sink,
		MaxSize:  maxSize,
		StopChan: make(chan struct{}),
		Pending:  make(map[string]bool),
	}
	gen.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go gen.worker(i)
	}
	log.Printf("Started %d preview worker(s) with queue size %d", numWorkers, queueSize)
	return gen
}

func (pg *PreviewGenerator) worker(id int) {
	defer pg.Wg.Done()

	log.Printf("Preview worker %d started", id)
	for {
		select {
		case job, ok := <-pg.JobQueue:
			if !ok {
				log.Printf("Preview worker %d stopping: Job queue closed", id)
				return
			}

			pg.processPreviewJob(id, job)

			pg.Mutex.Lock()
			delete(pg.Pending, job.BaselineID)
			pg.Mutex.Unlock()

		case <-pg.StopChan:
			log.Printf("Preview worker %d stopping: Stop signal received", id)
			return
		}
	}
}

func (pg *PreviewGenerator) processPreviewJob(id int, job PreviewJob) {
	dataURI, err := utils.EncodePreviewDataURI(job.Blob, pg.MaxSize)
	if err != nil {
		log.Printf("Worker %d: ERROR generating preview for %s (%s): %v", id, job.BaselineID, job.Filename, err)
		return
	}
	if !pg.Sink.SetPreview(job.BaselineID, dataURI) {
		log.Printf("Worker %d: baseline %s no longer holds a cached binary, dropping preview", id, job.BaselineID)
		return
	}
	log.Printf("Worker %d: Generated preview for baseline %s", id, job.BaselineID)
}

// QueueJob queues a preview job if one isn't already pending for the baseline
func (pg *PreviewGenerator) QueueJob(job PreviewJob) bool {
	pg.Mutex.Lock()
	if pg.Pending[job.BaselineID] {
		pg.Mutex.Unlock()
		return false
	}
	pg.Pending[job.BaselineID] = true
	pg.Mutex.Unlock()

	select {
	case pg.JobQueue <- job:
		return true
	default:
		log.Printf("WARNING: Preview job queue full. Skipping preview for baseline %s", job.BaselineID)
		pg.Mutex.Lock()
		delete(pg.Pending, job.BaselineID)
		pg.Mutex.Unlock()
		return false
	}
}

func (pg *PreviewGenerator) Stop() {
	log.Println("Stopping preview workers...")
	close(pg.StopChan)
	pg.Wg.Wait()
	log.Println("All preview workers stopped")
}
