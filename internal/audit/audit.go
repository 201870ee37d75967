package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fieldserve/ratecard/internal/model"
)

const (
	defaultFileMode = 0644
	defaultDirMode  = 0755
)

// Action names one kind of rate-card mutation.
type Action string

const (
	ActionCreateCard  Action = "create_card"
	ActionUpdateCard  Action = "update_card"
	ActionDeleteCard  Action = "delete_card"
	ActionSetRates    Action = "set_rates"
	ActionDeleteRates Action = "delete_rates"
)

// Record is one audited mutation.
type Record struct {
	Time     time.Time      `json:"time"`
	Action   Action         `json:"action"`
	CardID   int64          `json:"card_id"`
	Category model.Category `json:"category,omitempty"`
	Detail   string         `json:"detail,omitempty"`
}

type entry struct {
	Seq    uint64 `json:"seq"`
	Record Record `json:"record"`
}

// Trail is a durable append-only audit log of rate-card mutations.
// It stores one JSON entry per line and tracks export progress in a
// sidecar commit file; committed entries are compacted away on open.
type Trail struct {
	mu         sync.Mutex
	path       string
	commitPath string
	file       *os.File
	nextSeq    uint64
	committed  uint64
}

// Open creates or opens an audit trail at path. On startup it compacts
// committed entries and ignores a partially written trailing line.
func Open(path string) (*Trail, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("audit: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), defaultDirMode); err != nil {
		return nil, fmt.Errorf("audit: mkdir: %w", err)
	}

	commitPath := path + ".commit"
	committed, err := readCommitted(commitPath)
	if err != nil {
		return nil, err
	}

	maxSeq, err := compactCommitted(path, committed)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, defaultFileMode)
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}

	next := maxSeq + 1
	if committed+1 > next {
		next = committed + 1
	}

	return &Trail{
		path:       path,
		commitPath: commitPath,
		file:       f,
		nextSeq:    next,
		committed:  committed,
	}, nil
}

// Append persists one mutation record and returns its sequence number.
// A zero Time is filled with the current time.
func (t *Trail) Append(record Record) (uint64, error) {
	if record.Action == "" {
		return 0, errors.New("audit: record action is empty")
	}
	if record.Time.IsZero() {
		record.Time = time.Now().UTC()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	seq := t.nextSeq
	t.nextSeq++

	line, err := json.Marshal(entry{Seq: seq, Record: record})
	if err != nil {
		return 0, fmt.Errorf("audit: marshal entry: %w", err)
	}
	line = append(line, '\n')

	if _, err := t.file.Write(line); err != nil {
		return 0, fmt.Errorf("audit: write entry: %w", err)
	}
	if err := t.file.Sync(); err != nil {
		return 0, fmt.Errorf("audit: sync entry: %w", err)
	}
	return seq, nil
}

// Commit marks all entries up to seq as exported.
func (t *Trail) Commit(seq uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if seq <= t.committed {
		return nil
	}
	t.committed = seq
	return writeCommitted(t.commitPath, seq)
}

// Committed returns the highest committed sequence number.
func (t *Trail) Committed() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.committed
}

// Replay calls fn for each uncommitted entry in sequence order.
func (t *Trail) Replay(fn func(seq uint64, record Record) error) error {
	if fn == nil {
		return errors.New("audit: replay callback is nil")
	}

	t.mu.Lock()
	path := t.path
	committed := t.committed
	t.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("audit: open for replay: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("audit: replay read: %w", err)
		}
		if len(line) == 0 {
			if errors.Is(err, io.EOF) {
				return nil
			}
			continue
		}
		if !strings.HasSuffix(string(line), "\n") {
			// Ignore a potentially partial trailing line.
			return nil
		}

		var e entry
		if uerr := json.Unmarshal(line, &e); uerr != nil {
			// Stop at first malformed line and keep replay deterministic.
			return nil
		}
		if e.Seq > committed {
			if rerr := fn(e.Seq, e.Record); rerr != nil {
				return rerr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

// Close closes the underlying trail file.
func (t *Trail) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

func readCommitted(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("audit: read commit file: %w", err)
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return 0, nil
	}
	seq, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("audit: parse commit seq: %w", err)
	}
	return seq, nil
}

func writeCommitted(path string, seq uint64) error {
	tmp := path + ".tmp"
	payload := []byte(strconv.FormatUint(seq, 10) + "\n")
	if err := os.WriteFile(tmp, payload, defaultFileMode); err != nil {
		return fmt.Errorf("audit: write commit tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("audit: rename commit file: %w", err)
	}
	return nil
}

func compactCommitted(path string, committed uint64) (uint64, error) {
	src, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, defaultFileMode)
	if err != nil {
		return 0, fmt.Errorf("audit: open source for compact: %w", err)
	}
	defer src.Close()

	tmpPath := path + ".compact"
	dst, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_RDWR, defaultFileMode)
	if err != nil {
		return 0, fmt.Errorf("audit: open compact tmp: %w", err)
	}

	reader := bufio.NewReader(src)
	var maxSeq uint64

	for {
		line, rerr := reader.ReadBytes('\n')
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			_ = dst.Close()
			_ = os.Remove(tmpPath)
			return 0, fmt.Errorf("audit: compact read: %w", rerr)
		}
		if len(line) == 0 {
			if errors.Is(rerr, io.EOF) {
				break
			}
			continue
		}
		if !strings.HasSuffix(string(line), "\n") {
			// Ignore potentially partial trailing line.
			break
		}

		var e entry
		if uerr := json.Unmarshal(line, &e); uerr != nil {
			break
		}
		if e.Seq > maxSeq {
			maxSeq = e.Seq
		}
		if e.Seq > committed {
			if _, werr := dst.Write(line); werr != nil {
				_ = dst.Close()
				_ = os.Remove(tmpPath)
				return 0, fmt.Errorf("audit: compact write: %w", werr)
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
	}

	if err := dst.Sync(); err != nil {
		_ = dst.Close()
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("audit: compact sync: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("audit: compact close: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("audit: compact rename: %w", err)
	}
	return maxSeq, nil
}
