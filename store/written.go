package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// WrittenLog records the IDs of games whose rows reached a finished batch
// file, one ID per line. Self-play game IDs are derived from the run seed,
// so a restarted run can skip games it already wrote.
//
// A torn final line from a crash is read back as an unknown ID and ignored.
type WrittenLog struct {
	mu   sync.Mutex
	file *os.File
	ids  map[string]struct{}
}

// OpenWrittenLog loads path, creating it if needed, and opens it for append.
func OpenWrittenLog(path string) (*WrittenLog, error) {
	if path == "" {
		return nil, fmt.Errorf("log path is required")
	}
	ids := make(map[string]struct{})
	if f, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if id := strings.TrimSpace(scanner.Text()); id != "" {
				ids[id] = struct{}{}
			}
		}
		_ = f.Close()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &WrittenLog{file: file, ids: ids}, nil
}

func (l *WrittenLog) Has(gameID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[gameID]
	return ok
}

func (l *WrittenLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}

// Add appends the IDs not yet recorded and syncs the file.
func (l *WrittenLog) Add(gameIDs ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("log file is closed")
	}

	var (
		sb    strings.Builder
		fresh = make(map[string]struct{}, len(gameIDs))
	)
	for _, id := range gameIDs {
		if id == "" {
			return fmt.Errorf("empty game id")
		}
		if _, ok := l.ids[id]; ok {
			continue
		}
		if _, ok := fresh[id]; ok {
			continue
		}
		fresh[id] = struct{}{}
		sb.WriteString(id)
		sb.WriteByte('\n')
	}
	if len(fresh) == 0 {
		return nil
	}
	if _, err := l.file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync log: %w", err)
	}
	for id := range fresh {
		l.ids[id] = struct{}{}
	}
	return nil
}

func (l *WrittenLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
