package tle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Ext is the file extension of catalog source files.
const Ext = ".tle"

// SourceDir manages catalog source files on disk: one current <name>.tle per
// source plus timestamped backups of the files it replaced.
type SourceDir struct {
	dir        string
	maxBackups int
}

// NewSourceDir creates a SourceDir rooted at dir keeping at most maxBackups
// old copies per source.
func NewSourceDir(dir string, maxBackups int) *SourceDir {
	if maxBackups < 0 {
		maxBackups = 0
	}
	return &SourceDir{
		dir:        dir,
		maxBackups: maxBackups,
	}
}

// Dir returns the directory path.
func (d *SourceDir) Dir() string {
	return d.dir
}

// Path returns the current file path for the named source.
func (d *SourceDir) Path(name string) string {
	return filepath.Join(d.dir, name+Ext)
}

// Read returns the named source. A missing file yields os.ErrNotExist.
func (d *SourceDir) Read(name string) (Source, error) {
	data, err := os.ReadFile(d.Path(name))
	if err != nil {
		return Source{Name: name}, fmt.Errorf("reading source %q: %w", name, err)
	}
	return Source{Name: name, Data: data}, nil
}

// Write atomically replaces the named source with data. The previous file,
// if any, is kept as a backup stamped with ts and old backups are pruned.
func (d *SourceDir) Write(name string, data []byte, ts time.Time) error {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("creating source dir: %w", err)
	}

	tmp, err := os.CreateTemp(d.dir, "."+name+"-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	current := d.Path(name)
	if d.maxBackups > 0 {
		backup := fmt.Sprintf("%s.%d", current, ts.Unix())
		if err := os.Rename(current, backup); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("backing up %s: %w", current, err)
		}
	}

	if err := os.Rename(tmpPath, current); err != nil {
		return fmt.Errorf("replacing %s: %w", current, err)
	}

	return d.prune(name)
}

type backupFile struct {
	name string
	ts   time.Time
}

// backups lists the backups of a source, oldest first.
func (d *SourceDir) backups(name string) ([]backupFile, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing source dir: %w", err)
	}

	prefix := name + Ext + "."
	var files []backupFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		unix, err := strconv.ParseInt(strings.TrimPrefix(e.Name(), prefix), 10, 64)
		if err != nil {
			continue
		}
		files = append(files, backupFile{name: e.Name(), ts: time.Unix(unix, 0)})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ts.Before(files[j].ts)
	})

	return files, nil
}

func (d *SourceDir) prune(name string) error {
	files, err := d.backups(name)
	if err != nil {
		return err
	}

	if len(files) <= d.maxBackups {
		return nil
	}

	for _, f := range files[:len(files)-d.maxBackups] {
		if err := os.Remove(filepath.Join(d.dir, f.name)); err != nil {
			return fmt.Errorf("pruning backup %s: %w", f.name, err)
		}
	}

	return nil
}

// IsSourceFile reports whether path names a current source file (not a
// backup or temp file).
func IsSourceFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, Ext) && !strings.HasPrefix(base, ".")
}
