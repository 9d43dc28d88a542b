package tle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSourceDirWriteRead(t *testing.T) {
	d := NewSourceDir(filepath.Join(t.TempDir(), "tle"), 2)

	if _, err := d.Read("stations"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Read on empty dir: got %v, want ErrNotExist", err)
	}

	if err := d.Write("stations", []byte("first"), time.Unix(100, 0)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	src, err := d.Read("stations")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if src.Name != "stations" || string(src.Data) != "first" {
		t.Errorf("Read = %+v", src)
	}
}

func TestSourceDirBackupsPruned(t *testing.T) {
	dir := t.TempDir()
	d := NewSourceDir(dir, 2)

	for i, body := range []string{"v1", "v2", "v3", "v4"} {
		if err := d.Write("starlink", []byte(body), time.Unix(int64(1000+i), 0)); err != nil {
			t.Fatalf("Write %s: %v", body, err)
		}
	}

	src, err := d.Read("starlink")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(src.Data) != "v4" {
		t.Errorf("current = %q, want v4", src.Data)
	}

	backups, err := d.backups("starlink")
	if err != nil {
		t.Fatalf("backups: %v", err)
	}
	if len(backups) != 2 {
		t.Fatalf("got %d backups, want 2", len(backups))
	}
	// v1 was pruned; v2 and v3 remain, stamped with the write that replaced them.
	data, err := os.ReadFile(filepath.Join(dir, backups[0].name))
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(data) != "v2" {
		t.Errorf("oldest backup = %q, want v2", data)
	}
}

func TestSourceDirNoBackups(t *testing.T) {
	dir := t.TempDir()
	d := NewSourceDir(dir, 0)

	for _, body := range []string{"a", "b"} {
		if err := d.Write("stations", []byte(body), time.Now()); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d files, want only the current source", len(entries))
	}
}

func TestIsSourceFile(t *testing.T) {
	tests := map[string]bool{
		"/tle/stations.tle":            true,
		"starlink.tle":                 true,
		"/tle/stations.tle.1700000000": false,
		"/tle/.stations-123456":        false,
		"/tle/.hidden.tle":             false,
		"/tle/readme.txt":              false,
	}
	for path, want := range tests {
		if got := IsSourceFile(path); got != want {
			t.Errorf("IsSourceFile(%q) = %v, want %v", path, got, want)
		}
	}
}
