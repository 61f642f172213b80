// Package console is a chat.Messenger that prints to a terminal and saves
// delivered files to a directory. `wbot fetch` runs the pipeline with it.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/byAyes/wbot/internal/core/chat"
)

// Messenger writes bot output to Out and copies media into OutputDir
type Messenger struct {
	Out       io.Writer
	OutputDir string

	mu     sync.Mutex
	nextID int
	last   string
	saved  []string
}

// New creates a console messenger writing to stdout
func New(outputDir string) *Messenger {
	return &Messenger{Out: os.Stdout, OutputDir: outputDir}
}

var (
	textColor  = color.New(color.FgCyan)
	editColor  = color.New(color.Faint)
	mediaColor = color.New(color.FgGreen, color.Bold)
)

func (m *Messenger) id() string {
	m.nextID++
	return fmt.Sprintf("console-%d", m.nextID)
}

func (m *Messenger) SendText(_ context.Context, _ chat.Target, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = strings.TrimRight(text, ".")
	textColor.Fprintln(m.Out, text)
	return m.id(), nil
}

func (m *Messenger) EditText(_ context.Context, _, _ string, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// ellipsis frames of the same status are noise on a terminal
	base := strings.TrimRight(text, ".")
	if base == m.last {
		return nil
	}
	m.last = base
	editColor.Fprintln(m.Out, "  "+text)
	return nil
}

// SendMedia copies the file into OutputDir under its document name, or the
// caption-less base name when it has none.
func (m *Messenger) SendMedia(_ context.Context, _ chat.Target, media chat.Media) (string, error) {
	name := media.Filename
	if name == "" {
		name = filepath.Base(media.Path)
	}
	if err := os.MkdirAll(m.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	dst := uniquePath(filepath.Join(m.OutputDir, name))
	if err := copyFile(media.Path, dst); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, dst)
	mediaColor.Fprintf(m.Out, "%s saved: %s\n", media.Kind, dst)
	if media.Caption != "" {
		textColor.Fprintln(m.Out, media.Caption)
	}
	return m.id(), nil
}

func (m *Messenger) React(_ context.Context, _, _ string, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintln(m.Out, emoji)
	return nil
}

// Saved lists the files written so far
func (m *Messenger) Saved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.saved...)
}

func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy to %s: %w", dst, err)
	}
	return nil
}
