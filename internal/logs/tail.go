package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const maxLineBytes = 1 << 20

// Position identifies a read point in a specific file. A rename or a new
// run behind the same path yields a different file identity.
type Position struct {
	Offset int64
	file   os.FileInfo
}

// Last returns up to limit trailing lines of path and the position after
// them. A missing file yields no lines and a zero position.
func Last(path string, limit int) ([]string, Position, error) {
	file, info, err := open(path)
	if err != nil || file == nil {
		return nil, Position{}, err
	}
	defer file.Close()

	if limit <= 0 {
		return nil, Position{Offset: info.Size(), file: info}, nil
	}

	ring := make([]string, limit)
	count, next := 0, 0
	scanner := newScanner(file)
	for scanner.Scan() {
		ring[next] = scanner.Text()
		next = (next + 1) % limit
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, Position{}, fmt.Errorf("read log file: %w", err)
	}
	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, Position{}, fmt.Errorf("determine log offset: %w", err)
	}

	if count > limit {
		count = limit
	}
	lines := make([]string, 0, count)
	start := (next - count + limit) % limit
	for i := range count {
		lines = append(lines, ring[(start+i)%limit])
	}
	return lines, Position{Offset: offset, file: info}, nil
}

// Follow calls emit for every complete line appended to path after pos,
// polling every interval until ctx ends. When path starts pointing at a
// different or truncated file, reading restarts at its beginning.
func Follow(ctx context.Context, path string, pos Position, interval time.Duration, emit func(string)) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		next, err := drain(path, pos, emit)
		if err != nil {
			return err
		}
		pos = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func drain(path string, pos Position, emit func(string)) (Position, error) {
	file, info, err := open(path)
	if err != nil || file == nil {
		return pos, err
	}
	defer file.Close()

	offset := pos.Offset
	if pos.file == nil || !os.SameFile(pos.file, info) || info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return pos, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// A partial trailing line is re-read on the next poll.
			if errors.Is(err, io.EOF) {
				return Position{Offset: offset, file: info}, nil
			}
			return pos, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		emit(line[:len(line)-1])
	}
}

// open follows symlinks so the identity reflects the current run log.
func open(path string) (*os.File, os.FileInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, nil, fmt.Errorf("log path %q is a directory", path)
	}
	return file, info, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}
