package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/exp/mmap"
)

// Log is a memory-mapped execution log.
type Log struct {
	Path   string
	reader *mmap.ReaderAt
}

// OpenLog maps the execution log at path read-only.
func OpenLog(path string) (*Log, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, &MissingError{Kind: "execution log", Path: path}
	}
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("map execution log: %w", err)
	}
	return &Log{Path: path, reader: reader}, nil
}

// Len returns the log size in bytes.
func (l *Log) Len() int {
	return l.reader.Len()
}

// Bytes copies the whole log out of the mapping.
func (l *Log) Bytes() ([]byte, error) {
	buf := make([]byte, l.reader.Len())
	if len(buf) == 0 {
		return buf, nil
	}
	if _, err := l.reader.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("read execution log: %w", err)
	}
	return buf, nil
}

// Close unmaps the log.
func (l *Log) Close() error {
	return l.reader.Close()
}

// ReadLog returns the contents of the execution log at path.
func ReadLog(path string) (string, error) {
	l, err := OpenLog(path)
	if err != nil {
		return "", err
	}
	defer l.Close()

	b, err := l.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
