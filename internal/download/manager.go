// Package download runs file downloads in the background and lets callers
// poll them by id until they complete or are interrupted.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"thirdcoast.systems/browserutility/internal/metrics"
	"thirdcoast.systems/browserutility/pkg/utils/format"
)

type State string

const (
	StateInProgress  State = "in_progress"
	StateComplete    State = "complete"
	StateInterrupted State = "interrupted"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultWaitTimeout  = 120 * time.Second
)

var ErrWaitTimeout = errors.New("Timed out waiting for downloads to finish.")

// Item is a snapshot of one download.
type Item struct {
	ID            int64     `json:"id"`
	URL           string    `json:"url"`
	Filename      string    `json:"filename"`
	State         State     `json:"state"`
	BytesReceived int64     `json:"bytesReceived"`
	TotalBytes    int64     `json:"totalBytes"`
	Error         string    `json:"error,omitempty"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime,omitempty"`
}

// NotFoundError is returned when polling an id the manager never issued.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Download item not found for id %d.", e.ID)
}

// InterruptedError is returned when a polled download failed.
type InterruptedError struct {
	Item Item
}

func (e *InterruptedError) Error() string {
	name := e.Item.Filename
	if name == "" {
		name = fmt.Sprint(e.Item.ID)
	}
	return fmt.Sprintf("Download interrupted for %s.", name)
}

// Manager owns the download directory and the in-memory item registry.
type Manager struct {
	root         string
	http         *http.Client
	pollInterval time.Duration
	waitTimeout  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	nextID int64
	items  map[int64]*Item
}

type Option func(*Manager)

func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.http = c }
}

func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

func WithWaitTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.waitTimeout = d
		}
	}
}

// NewManager stores downloads under root.
func NewManager(root string, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		root:         root,
		http:         &http.Client{},
		pollInterval: DefaultPollInterval,
		waitTimeout:  DefaultWaitTimeout,
		ctx:          ctx,
		cancel:       cancel,
		items:        make(map[int64]*Item),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root is the directory relative download names resolve against.
func (m *Manager) Root() string { return m.root }

// Close interrupts every running download and waits for them to stop.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

// Start begins downloading rawURL to name, a path relative to the root that
// may contain subdirectories. Existing files are never overwritten; the name
// is uniquified as "name (1).ext". It returns the new item's id.
//
// ctx covers the call only. The transfer runs until it finishes or Close is
// called, so it outlives the request that started it.
func (m *Manager) Start(ctx context.Context, rawURL, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return 0, errors.New("Missing URL to download.")
	}
	rel := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(rel) || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return 0, fmt.Errorf("download: invalid filename %q", name)
	}

	req, err := http.NewRequestWithContext(m.ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("download: %w", err)
	}

	target := filepath.Join(m.root, rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("download: create directory: %w", err)
	}

	m.mu.Lock()
	f, path, err := createUnique(target)
	if err != nil {
		m.mu.Unlock()
		return 0, fmt.Errorf("download: %w", err)
	}
	m.nextID++
	item := &Item{
		ID:        m.nextID,
		URL:       rawURL,
		Filename:  path,
		State:     StateInProgress,
		StartTime: time.Now(),
	}
	m.items[item.ID] = item
	m.mu.Unlock()

	metrics.ActiveDownloads.Inc()
	slog.Info("download started", "id", item.ID, "url", rawURL, "filename", path)

	m.wg.Add(1)
	go m.fetch(item.ID, req, f)

	return item.ID, nil
}

// Search returns a copy of the item with id.
func (m *Manager) Search(id int64) (Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return Item{}, false
	}
	return *item, true
}

// Items lists every known item, oldest first.
func (m *Manager) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Item, 0, len(m.items))
	for id := int64(1); id <= m.nextID; id++ {
		if item, ok := m.items[id]; ok {
			out = append(out, *item)
		}
	}
	return out
}

func (m *Manager) fetch(id int64, req *http.Request, f *os.File) {
	defer m.wg.Done()
	defer metrics.ActiveDownloads.Dec()

	written, total, err := m.copyTo(req, f, id)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}

	m.mu.Lock()
	item := m.items[id]
	item.BytesReceived = written
	item.EndTime = time.Now()
	if err != nil {
		item.State = StateInterrupted
		item.Error = err.Error()
	} else {
		item.State = StateComplete
		if total <= 0 {
			item.TotalBytes = written
		}
	}
	snapshot := *item
	m.mu.Unlock()

	metrics.DownloadsTotal.WithLabelValues(string(snapshot.State)).Inc()
	metrics.DownloadBytesTotal.Add(float64(written))

	elapsed := format.Elapsed(snapshot.EndTime.Sub(snapshot.StartTime))
	if err != nil {
		_ = os.Remove(snapshot.Filename)
		slog.Warn("download interrupted", "id", id, "filename", snapshot.Filename, "error", err, "elapsed", elapsed)
		return
	}
	slog.Info("download complete", "id", id, "filename", snapshot.Filename, "size", format.Bytes(written), "elapsed", elapsed)
}

func (m *Manager) copyTo(req *http.Request, f *os.File, id int64) (written, total int64, err error) {
	resp, err := m.http.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	total = resp.ContentLength
	m.mu.Lock()
	m.items[id].TotalBytes = total
	m.mu.Unlock()

	written, err = io.Copy(&progressWriter{w: f, m: m, id: id}, resp.Body)
	if err != nil {
		return written, total, err
	}
	if total > 0 && written != total {
		return written, total, fmt.Errorf("short body: got %d of %d bytes", written, total)
	}
	return written, total, nil
}

type progressWriter struct {
	w  io.Writer
	m  *Manager
	id int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if n > 0 {
		p.m.mu.Lock()
		p.m.items[p.id].BytesReceived += int64(n)
		p.m.mu.Unlock()
	}
	return n, err
}

// createUnique opens target exclusively, trying "stem (n).ext" on collision.
func createUnique(target string) (*os.File, string, error) {
	dir := filepath.Dir(target)
	base := filepath.Base(target)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for n := 0; n < 10000; n++ {
		candidate := target
		if n > 0 {
			candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		}
		f, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, candidate, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("no free filename for %s", target)
}
