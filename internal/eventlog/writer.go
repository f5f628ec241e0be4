// Package eventlog provides an append-only JSON-lines trajectory log: one
// step record per line.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
)

// Writer writes step records as JSON lines to a file.
type Writer struct {
	file   *os.File
	writer *bufio.Writer
	count  uint64
}

// NewWriter creates a new step log writer at the given path.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create step log: %w", err)
	}
	return &Writer{
		file:   f,
		writer: bufio.NewWriterSize(f, 64*1024),
	}, nil
}

// Write appends a step record to the log.
func (w *Writer) Write(rec *domain.StepRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal step %d: %w", rec.Step, err)
	}
	_, err = w.writer.Write(data)
	if err != nil {
		return err
	}
	err = w.writer.WriteByte('\n')
	if err != nil {
		return err
	}
	w.count++
	return nil
}

// Close flushes and closes the log file.
func (w *Writer) Close() error {
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// Count returns the number of records written.
func (w *Writer) Count() uint64 {
	return w.count
}

// Reader reads step records from a JSON-lines log.
type Reader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewReader opens a step log for reading.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open step log: %w", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 256*1024), 1024*1024)
	return &Reader{
		file:    f,
		scanner: scanner,
	}, nil
}

// Next reads the next record. Returns nil, io.EOF at end of log.
func (r *Reader) Next() (*domain.StepRecord, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	var rec domain.StepRecord
	if err := json.Unmarshal(r.scanner.Bytes(), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal step: %w", err)
	}
	return &rec, nil
}

// ReadAll reads all remaining records from the log.
func (r *Reader) ReadAll() ([]domain.StepRecord, error) {
	var recs []domain.StepRecord
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, *rec)
	}
}

// ReadFile reads a whole step log.
func ReadFile(path string) ([]domain.StepRecord, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadAll()
}

// Close closes the log file.
func (r *Reader) Close() error {
	return r.file.Close()
}
