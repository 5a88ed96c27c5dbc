// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package receiver

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestResolvePath_Valid(t *testing.T) {
	root := t.TempDir()
	valid := []string{
		"a.txt",
		"dir/b.txt",
		"deep/nested/tree/c.bin",
		"with space.txt",
	}
	for _, name := range valid {
		resolved, err := resolvePath(root, name)
		if err != nil {
			t.Errorf("expected %q to resolve, got error: %v", name, err)
			continue
		}
		if !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
			t.Errorf("%q resolved outside root: %q", name, resolved)
		}
	}
}

func TestResolvePath_RejectsEscapes(t *testing.T) {
	root := t.TempDir()
	invalid := []string{
		"..",
		"../evil.txt",
		"../../etc/passwd",
		"dir/../../evil.txt",
		"a/../..",
	}
	for _, name := range invalid {
		if _, err := resolvePath(root, name); err == nil {
			t.Errorf("expected %q to be rejected", name)
		}
	}
}

func TestResolvePath_RejectsRootItself(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"", ".", "dir/.."} {
		if _, err := resolvePath(root, name); err == nil {
			t.Errorf("expected %q to be rejected (resolves to root)", name)
		}
	}
}

func TestResolvePath_RejectsNullByte(t *testing.T) {
	root := t.TempDir()
	if _, err := resolvePath(root, "a\x00b"); err == nil {
		t.Error("expected null byte to be rejected")
	}
}

func TestResolvePath_AbsoluteStaysUnderRoot(t *testing.T) {
	// Um filename absoluto é rebaixado para dentro do root, nunca usado
	// como caminho absoluto real.
	root := t.TempDir()
	resolved, err := resolvePath(root, "/etc/passwd")
	if err != nil {
		t.Fatalf("resolvePath: %v", err)
	}
	if !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
		t.Errorf("absolute filename escaped root: %q", resolved)
	}
}
