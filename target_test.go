// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSecurityCheck(t *testing.T) {
	cases := []struct {
		name        string
		path        string
		expectError bool
	}{
		{name: "plain file", path: "file.txt"},
		{name: "nested file", path: "a/b/c.txt"},
		{name: "dot segment", path: "./file.txt"},
		{name: "internal parent that stays inside", path: "a/../file.txt"},
		{name: "parent traversal", path: "../file.txt", expectError: true},
		{name: "nested parent traversal", path: "a/../../file.txt", expectError: true},
		{name: "absolute path", path: "/etc/passwd", expectError: true},
	}

	dst := t.TempDir()
	cfg := NewConfig()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := securityCheck(NewDisk(), dst, tc.path, cfg)
			if tc.expectError && err == nil {
				t.Errorf("securityCheck(%q) expected error", tc.path)
			}
			if !tc.expectError && err != nil {
				t.Errorf("securityCheck(%q) error = %v", tc.path, err)
			}
		})
	}
}

func TestSecurityCheckSymlinkInPath(t *testing.T) {
	dst := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(dst, "escape")); err != nil {
		t.Fatal(err)
	}

	if err := securityCheck(NewDisk(), dst, "escape/file.txt", NewConfig()); err == nil {
		t.Error("securityCheck() must reject paths through a symlinked directory")
	}

	cfg := NewConfig(WithInsecureTraverseSymlinks(true))
	if err := securityCheck(NewDisk(), dst, "escape/file.txt", cfg); err != nil {
		t.Errorf("securityCheck() with traversal allowed: %v", err)
	}
}

func TestDiskCreateDirIdempotent(t *testing.T) {
	dst := t.TempDir()
	d := NewDisk()
	path := filepath.Join(dst, "a", "b")

	if err := d.CreateDir(path, 0755); err != nil {
		t.Fatalf("CreateDir() error = %v", err)
	}
	if err := d.CreateDir(path, 0755); err != nil {
		t.Errorf("CreateDir() on existing dir error = %v", err)
	}
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		t.Errorf("expected directory at %s", path)
	}
}

func TestDiskCreateFile(t *testing.T) {
	dst := t.TempDir()
	d := NewDisk()
	path := filepath.Join(dst, "f.txt")

	n, err := d.CreateFile(path, strings.NewReader("hello"), 0644, false, -1)
	if err != nil {
		t.Fatalf("CreateFile() error = %v", err)
	}
	if n != 5 {
		t.Errorf("CreateFile() = %d bytes, want 5", n)
	}

	if _, err := d.CreateFile(path, strings.NewReader("again"), 0644, false, -1); err == nil {
		t.Error("CreateFile() must refuse to overwrite without the flag")
	}
	assertFileContent(t, path, "hello")

	if _, err := d.CreateFile(path, strings.NewReader("again"), 0644, true, -1); err != nil {
		t.Errorf("CreateFile() with overwrite error = %v", err)
	}
	assertFileContent(t, path, "again")
}

func TestDiskCreateFileMaxSize(t *testing.T) {
	dst := t.TempDir()
	d := NewDisk()
	path := filepath.Join(dst, "f.txt")

	_, err := d.CreateFile(path, strings.NewReader("exceeds the limit"), 0644, false, 4)
	if err == nil {
		t.Fatal("CreateFile() expected size limit error")
	}
	// the partial file must be gone
	if _, err := os.Lstat(path); !os.IsNotExist(err) {
		t.Error("partial output left behind after size limit hit")
	}
}

func TestDiskCreateSymlink(t *testing.T) {
	dst := t.TempDir()
	d := NewDisk()
	link := filepath.Join(dst, "link")

	if err := d.CreateSymlink("target", link, false); err != nil {
		t.Fatalf("CreateSymlink() error = %v", err)
	}
	if err := d.CreateSymlink("other", link, false); err == nil {
		t.Error("CreateSymlink() must refuse to overwrite without the flag")
	}
	if err := d.CreateSymlink("other", link, true); err != nil {
		t.Errorf("CreateSymlink() with overwrite error = %v", err)
	}
	got, err := os.Readlink(link)
	if err != nil || got != "other" {
		t.Errorf("readlink = %q (%v), want %q", got, err, "other")
	}
}
