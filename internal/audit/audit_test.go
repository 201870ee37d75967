package audit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fieldserve/ratecard/internal/model"
)

func TestAppendReplayCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mutations.audit")

	trail, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = trail.Close() })

	seq1, err := trail.Append(Record{Action: ActionCreateCard, CardID: 1, Detail: "Acme"})
	if err != nil {
		t.Fatalf("Append first: %v", err)
	}
	seq2, err := trail.Append(Record{Action: ActionSetRates, CardID: 1, Category: model.CategoryDedicated})
	if err != nil {
		t.Fatalf("Append second: %v", err)
	}
	if seq2 <= seq1 {
		t.Fatalf("sequence did not advance: seq1=%d seq2=%d", seq1, seq2)
	}

	if err := trail.Commit(seq1); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	var replayed []Action
	err = trail.Replay(func(_ uint64, r Record) error {
		replayed = append(replayed, r.Action)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(replayed) != 1 || replayed[0] != ActionSetRates {
		t.Fatalf("Replay actions=%v, want [set_rates]", replayed)
	}
}

func TestAppendFillsTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mutations.audit")

	trail, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = trail.Close() })

	if _, err := trail.Append(Record{Action: ActionDeleteCard, CardID: 3}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	err = trail.Replay(func(_ uint64, r Record) error {
		if r.Time.IsZero() {
			t.Error("replayed record has zero time")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
}

func TestAppendRejectsEmptyAction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mutations.audit")

	trail, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = trail.Close() })

	if _, err := trail.Append(Record{CardID: 9}); err == nil {
		t.Error("Append with empty action succeeded")
	}
}

func TestOpenCompactsCommitted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mutations.audit")

	trail, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	seq1, err := trail.Append(Record{Action: ActionCreateCard, CardID: 1})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := trail.Append(Record{Action: ActionUpdateCard, CardID: 1}); err != nil {
		t.Fatalf("Append second: %v", err)
	}
	if err := trail.Commit(seq1); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := trail.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open second: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	var replayed []Action
	err = reopened.Replay(func(_ uint64, r Record) error {
		replayed = append(replayed, r.Action)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(replayed) != 1 || replayed[0] != ActionUpdateCard {
		t.Fatalf("Replay after compact=%v, want [update_card]", replayed)
	}
}

func TestOpenIgnoresPartialTrailingLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mutations.audit")

	trail, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := trail.Append(Record{Action: ActionCreateCard, CardID: 1}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := trail.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Simulate torn write.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if _, err := f.WriteString(`{"seq":999,"record":`); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close torn writer: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open second: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	var replayed []Action
	err = reopened.Replay(func(_ uint64, r Record) error {
		replayed = append(replayed, r.Action)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay second: %v", err)
	}
	if len(replayed) != 1 || replayed[0] != ActionCreateCard {
		t.Fatalf("Replay after torn write=%v, want [create_card]", replayed)
	}
}
