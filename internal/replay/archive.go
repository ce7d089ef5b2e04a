package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"arena-core/internal/logging"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	ArchiveQueueSize     = 64                     // Pending sessions before drops
	ArchiveFlushInterval = 250 * time.Millisecond // How often the writer drains
	maxArchiveLine       = 16 << 20               // Longest JSONL line ReadArchive accepts
)

// ArchiveStats reports archive throughput.
type ArchiveStats struct {
	Total   uint64 `json:"total"`
	Dropped uint64 `json:"dropped"`
	Pending int    `json:"pending"`
	Running bool   `json:"running"`
}

// Archive appends finished sessions to a JSONL file from a background
// goroutine. Submissions beyond the rate limit or queue size are dropped.
type Archive struct {
	queue   chan *Session
	limiter *rate.Limiter

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	// stateMu orders enqueues before the stop signal
	stateMu sync.Mutex

	file   io.WriteCloser
	fileMu sync.Mutex

	total   atomic.Uint64
	dropped atomic.Uint64

	log *logrus.Entry
}

// NewArchive creates an archive accepting perSecond sessions per second.
func NewArchive(perSecond float64) *Archive {
	if perSecond <= 0 {
		perSecond = 1
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &Archive{
		queue:    make(chan *Session, ArchiveQueueSize),
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		stopChan: make(chan struct{}),
		log:      logging.For("archive"),
	}
}

// Start opens path for append and starts the writer.
func (a *Archive) Start(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	a.StartWriter(f)
	a.log.WithField("path", path).Info("📼 Replay archive started")
	return nil
}

// StartWriter starts the writer over w. The archive closes w on Stop.
func (a *Archive) StartWriter(w io.WriteCloser) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	if a.running.Load() {
		return
	}
	a.file = w
	a.running.Store(true)
	a.writerWg.Add(1)
	go a.writerLoop()
}

// Stop flushes pending sessions and closes the file.
func (a *Archive) Stop() {
	a.stopOnce.Do(func() {
		a.stateMu.Lock()
		if !a.running.Load() {
			a.stateMu.Unlock()
			return
		}
		a.running.Store(false)
		close(a.stopChan)
		a.stateMu.Unlock()
		a.writerWg.Wait()

		a.fileMu.Lock()
		if a.file != nil {
			a.file.Close()
		}
		a.fileMu.Unlock()
	})
}

// Submit queues a frozen session. Returns false when the archive is
// stopped, the session is still in progress, or it was rate limited.
func (a *Archive) Submit(s *Session) bool {
	if !a.running.Load() || s == nil {
		return false
	}
	if err := s.RequireTerminal(); err != nil {
		a.log.WithError(err).Warn("refusing to archive session")
		return false
	}
	if !a.limiter.Allow() {
		a.dropped.Add(1)
		return false
	}

	c := s.Clone()
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	if !a.running.Load() {
		a.dropped.Add(1)
		return false
	}
	select {
	case a.queue <- c:
		a.total.Add(1)
		return true
	default:
		a.dropped.Add(1)
		return false
	}
}

// Stats returns counters for monitoring.
func (a *Archive) Stats() ArchiveStats {
	return ArchiveStats{
		Total:   a.total.Load(),
		Dropped: a.dropped.Load(),
		Pending: len(a.queue),
		Running: a.running.Load(),
	}
}

func (a *Archive) writerLoop() {
	defer a.writerWg.Done()

	ticker := time.NewTicker(ArchiveFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopChan:
			a.drain()
			return
		case <-ticker.C:
			a.drain()
		}
	}
}

func (a *Archive) drain() {
	for {
		select {
		case s := <-a.queue:
			a.write(s)
		default:
			return
		}
	}
}

// write appends one newline-delimited JSON session.
func (a *Archive) write(s *Session) {
	data, err := json.Marshal(s)
	if err != nil {
		a.log.WithError(err).Error("❌ Failed to encode session")
		return
	}

	a.fileMu.Lock()
	defer a.fileMu.Unlock()
	if a.file == nil {
		return
	}
	if _, err := a.file.Write(append(data, '\n')); err != nil {
		a.log.WithError(err).Error("❌ Failed to write session")
	}
}

// ReadArchive decodes every session in a JSONL stream.
func ReadArchive(r io.Reader) ([]*Session, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxArchiveLine)

	var out []*Session
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var s Session
		if err := json.Unmarshal(sc.Bytes(), &s); err != nil {
			return out, fmt.Errorf("archive line %d: %w", line, err)
		}
		out = append(out, &s)
	}
	return out, sc.Err()
}
