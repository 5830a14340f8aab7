// Package audit records terminal retention actions. The primary sink is an
// append-only JSONL file; an optional QStash notifier fans the record out to
// an operator webhook.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	contractx "github.com/techflow/careflow/agent/contract"
)

// FileLog appends one JSON object per line to a log file. Writes are
// serialized through a mutex and the file is opened with O_APPEND, so each
// record lands whole.
type FileLog struct {
	mu   sync.Mutex
	file *os.File
}

func NewFileLog(path string) (*FileLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open action log %s: %v", contractx.ErrLogWrite, path, err)
	}
	return &FileLog{file: f}, nil
}

func (l *FileLog) Append(ctx context.Context, rec contractx.ActionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: marshal action record: %v", contractx.ErrLogWrite, err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("%w: append action record: %v", contractx.ErrLogWrite, err)
	}
	return nil
}

func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
