package patcher

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	logger "github.com/sirupsen/logrus"

	"github.com/forgeutils/check-updates/domain"
)

// Update is one in-place replacement: the byte span of the old constraint
// text and the text to put there.
type Update struct {
	Span domain.Span
	Text string
}

// Splice applies the updates to the buffer the spans were computed against
// and returns the new content. Replacements run from the highest offset
// down so earlier spans stay valid while later ones are rewritten. The
// second return is false when the result is byte-identical to the input.
func Splice(content []byte, updates []Update) ([]byte, bool, error) {
	if len(updates) == 0 {
		return content, false, nil
	}

	sorted := make([]Update, len(updates))
	copy(sorted, updates)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Span.Start > sorted[j].Span.Start
	})

	for i, u := range sorted {
		if u.Span.Start < 0 || u.Span.End > len(content) || u.Span.Start > u.Span.End {
			return nil, false, fmt.Errorf("span [%d,%d) out of bounds for %d-byte buffer",
				u.Span.Start, u.Span.End, len(content))
		}
		if i > 0 && u.Span.End > sorted[i-1].Span.Start {
			return nil, false, fmt.Errorf("overlapping spans at offset %d", u.Span.Start)
		}
	}

	out := content
	for _, u := range sorted {
		var buf bytes.Buffer
		buf.Grow(len(out) - u.Span.Len() + len(u.Text))
		buf.Write(out[:u.Span.Start])
		buf.WriteString(u.Text)
		buf.Write(out[u.Span.End:])
		out = buf.Bytes()
	}

	return out, !bytes.Equal(out, content), nil
}

// WriteFile replaces the file's content atomically: the new bytes go to a
// temporary file in the same directory which is then renamed over the
// original, keeping the original mode. A crash mid-write leaves the old
// file intact.
func WriteFile(path string, content []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, info.Mode()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set mode on %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Patch splices the updates into the file's parsed content and writes it
// back. When the updates change nothing the file is left untouched and no
// write happens at all.
func Patch(path string, content []byte, updates []Update) (bool, error) {
	out, changed, err := Splice(content, updates)
	if err != nil {
		return false, fmt.Errorf("failed to patch %s: %w", path, err)
	}
	if !changed {
		logger.Debugf("[patcher] no changes for %s", path)
		return false, nil
	}
	if err := WriteFile(path, out); err != nil {
		return false, err
	}
	return true, nil
}
