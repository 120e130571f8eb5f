package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"emmakit/pkg/network"
)

// EdgeLog is an append-only two-column edge file. Every write is flushed
// before it returns so a crash loses at most the edge being written.
type EdgeLog struct {
	path  string
	file  *os.File
	w     *bufio.Writer
	count int
	mu    sync.Mutex
}

var _ network.EdgeSink = (*EdgeLog)(nil)

// OpenEdgeLog opens path for appending, creating it and its directory if needed.
// Edges already in the file are counted, not rewritten.
func OpenEdgeLog(path string) (*EdgeLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create edge log directory: %w", err)
	}

	existing, err := countLines(path)
	if err != nil {
		return nil, fmt.Errorf("failed to scan existing edge log: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open edge log: %w", err)
	}

	return &EdgeLog{
		path:  path,
		file:  file,
		w:     bufio.NewWriter(file),
		count: existing,
	}, nil
}

// WriteEdges appends edges as "source<TAB>target" lines
func (l *EdgeLog) WriteEdges(edges []network.Edge) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("edge log %s is closed", l.path)
	}
	for _, e := range edges {
		if _, err := fmt.Fprintf(l.w, "%s\t%s\n", e.Source, e.Target); err != nil {
			return fmt.Errorf("failed to write edge: %w", err)
		}
	}
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush edge log: %w", err)
	}
	l.count += len(edges)
	return nil
}

// Count returns the number of edges in the file, earlier runs included
func (l *EdgeLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Path returns the file location
func (l *EdgeLog) Path() string {
	return l.path
}

// Close flushes and closes the file
func (l *EdgeLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	flushErr := l.w.Flush()
	closeErr := l.file.Close()
	l.file = nil
	if flushErr != nil {
		return fmt.Errorf("failed to flush edge log: %w", flushErr)
	}
	return closeErr
}

// ReadEdges loads an edge file. Blank lines are ignored; a line without a
// tab is an error.
func ReadEdges(path string) ([]network.Edge, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open edge file: %w", err)
	}
	defer file.Close()

	return DecodeEdges(file)
}

// DecodeEdges parses edge lines from r
func DecodeEdges(r io.Reader) ([]network.Edge, error) {
	var edges []network.Edge
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" {
			continue
		}
		source, target, ok := strings.Cut(text, "\t")
		if !ok {
			return nil, fmt.Errorf("line %d: expected two tab-separated columns", line)
		}
		edges = append(edges, network.Edge{Source: source, Target: target})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read edge file: %w", err)
	}
	return edges, nil
}

// SaveEdges writes a complete edge list to path, replacing it atomically
func SaveEdges(path string, edges []network.Edge) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tempFile := path + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	w := bufio.NewWriter(out)
	for _, e := range edges {
		if _, err = fmt.Fprintf(w, "%s\t%s\n", e.Source, e.Target); err != nil {
			break
		}
	}
	if err == nil {
		err = w.Flush()
	}
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write edges: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

func countLines(path string) (int, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer file.Close()

	n := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			n++
		}
	}
	return n, scanner.Err()
}
