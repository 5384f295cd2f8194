package ingestion

import (
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thiago-r-goveia/bearing-vibration/internal/models"
)

type Runner[T any] struct {
	Run T
}

type fileJob struct {
	index    int
	fileName string
}

// fileOutcome is the result of reading the file at the same index of the listing.
type fileOutcome struct {
	table    models.Table
	duration time.Duration
	err      error
	done     bool
}

// Worker reads the files of a directory listing into an index-aligned slice of outcomes.
type Worker interface {
	SetupReaderWorkers(dirPath string, fileNames []string, opts ReadOptions) (Runner[func() []fileOutcome], error)
}

type AsyncWorker struct {
	numWorkers int
	files      FileIngestor
	log        *slog.Logger
}

func NewAsyncWorker(files FileIngestor, numWorkers int, log *slog.Logger) *AsyncWorker {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &AsyncWorker{
		numWorkers: numWorkers,
		files:      files,
		log:        log,
	}
}

// SetupReaderWorkers prepares a run over fileNames. With a single worker the files
// are read in order on the calling goroutine and reading stops at the first failure.
// With more workers, dispatch stops once any file fails; every file before the
// failing one has already been dispatched, so the lowest failing index is still
// reported.
func (w *AsyncWorker) SetupReaderWorkers(dirPath string, fileNames []string, opts ReadOptions) (Runner[func() []fileOutcome], error) {
	if w.numWorkers == 1 {
		return Runner[func() []fileOutcome]{
			Run: func() []fileOutcome {
				return w.readSequential(dirPath, fileNames, opts)
			},
		}, nil
	}

	return Runner[func() []fileOutcome]{
		Run: func() []fileOutcome {
			return w.readParallel(dirPath, fileNames, opts)
		},
	}, nil
}

func (w *AsyncWorker) readSequential(dirPath string, fileNames []string, opts ReadOptions) []fileOutcome {
	outcomes := make([]fileOutcome, len(fileNames))
	for i, name := range fileNames {
		outcomes[i] = w.readOne(0, dirPath, name, opts)
		if outcomes[i].err != nil {
			break
		}
	}
	return outcomes
}

func (w *AsyncWorker) readParallel(dirPath string, fileNames []string, opts ReadOptions) []fileOutcome {
	outcomes := make([]fileOutcome, len(fileNames))
	jobs := make(chan fileJob)
	var failed atomic.Bool
	var wg sync.WaitGroup

	workers := min(w.numWorkers, len(fileNames))
	for i := 1; i <= workers; i++ {
		wg.Add(1)
		go w.ReaderWorker(i, dirPath, opts, jobs, outcomes, &failed, &wg)
	}

	for i, name := range fileNames {
		if failed.Load() {
			w.log.Debug("stopping dispatch after a failed file", slog.Int("dispatched", i))
			break
		}
		jobs <- fileJob{index: i, fileName: name}
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// ReaderWorker consumes jobs until the channel closes. Each job writes only to its own
// slot of outcomes.
func (w *AsyncWorker) ReaderWorker(workerID int, dirPath string, opts ReadOptions, jobs <-chan fileJob, outcomes []fileOutcome, failed *atomic.Bool, wg *sync.WaitGroup) {
	defer wg.Done()
	for job := range jobs {
		outcomes[job.index] = w.readOne(workerID, dirPath, job.fileName, opts)
		if outcomes[job.index].err != nil {
			failed.Store(true)
		}
	}
}

func (w *AsyncWorker) readOne(workerID int, dirPath, fileName string, opts ReadOptions) fileOutcome {
	table, duration, err := w.files.ReadFile(filepath.Join(dirPath, fileName), opts)
	if err != nil {
		return fileOutcome{err: err, done: true}
	}
	w.log.Debug("file read",
		slog.String("file", fileName),
		slog.Int("worker", workerID),
		slog.Int("rows", table.NumRows()),
		slog.Duration("duration", duration),
	)
	return fileOutcome{table: table, duration: duration, done: true}
}
