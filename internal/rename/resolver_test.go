package rename

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(name), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func assertExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected %s to exist: %v", path, err)
	}
}

func assertMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected %s to be gone, stat err = %v", path, err)
	}
}

func TestResolve_FreeName(t *testing.T) {
	dir := t.TempDir()
	current := touch(t, dir, "IMG_0001.jpg")

	out := NewResolver().Resolve(current, "red_bicycle")

	if out.Reason != Renamed || !out.Performed {
		t.Fatalf("Resolve() = %+v, want Renamed", out)
	}
	if out.FinalName != "red_bicycle.jpg" {
		t.Errorf("FinalName = %q, want %q", out.FinalName, "red_bicycle.jpg")
	}
	assertExists(t, filepath.Join(dir, "red_bicycle.jpg"))
	assertMissing(t, current)
}

func TestResolve_CollisionNumbering(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "photo.jpg")
	touch(t, dir, "photo_1.jpg")
	touch(t, dir, "photo_2.jpg")
	current := touch(t, dir, "IMG_0002.jpg")

	out := NewResolver().Resolve(current, "photo")

	if out.Reason != Renamed {
		t.Fatalf("Reason = %v, want Renamed", out.Reason)
	}
	if out.FinalName != "photo_3.jpg" {
		t.Errorf("FinalName = %q, want %q", out.FinalName, "photo_3.jpg")
	}
	if out.FinalPath != filepath.Join(dir, "photo_3.jpg") {
		t.Errorf("FinalPath = %q", out.FinalPath)
	}
	assertExists(t, filepath.Join(dir, "photo_3.jpg"))
}

func TestResolve_NotNeeded(t *testing.T) {
	dir := t.TempDir()
	current := touch(t, dir, "photo.jpg")
	renamed := false
	r := NewResolver()
	r.rename = func(oldpath, newpath string) error {
		renamed = true
		return os.Rename(oldpath, newpath)
	}

	out := r.Resolve(current, "photo")

	if out.Reason != NotNeeded || out.Performed {
		t.Errorf("Resolve() = %+v, want NotNeeded", out)
	}
	if renamed {
		t.Error("rename was called for a no-op")
	}
	assertExists(t, current)
}

func TestResolve_NotNeededForOwnSuffixedName(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "photo.jpg")
	current := touch(t, dir, "photo_1.jpg")

	out := NewResolver().Resolve(current, "photo")

	if out.Reason != NotNeeded {
		t.Errorf("Reason = %v, want NotNeeded", out.Reason)
	}
	assertExists(t, current)
}

func TestResolve_NotNeededForUncleanPath(t *testing.T) {
	dir := t.TempDir()
	current := touch(t, dir, "photo.jpg")
	r := NewResolver()
	r.rename = func(string, string) error {
		t.Error("rename was called for a no-op")
		return nil
	}

	out := r.Resolve(dir+string(filepath.Separator)+"."+string(filepath.Separator)+"photo.jpg", "photo")

	if out.Reason != NotNeeded || out.Performed {
		t.Errorf("Resolve() = %+v, want NotNeeded", out)
	}
	if out.FinalPath != current {
		t.Errorf("FinalPath = %q, want %q", out.FinalPath, current)
	}
	assertExists(t, current)
}

func TestResolve_HardLinkIsCollision(t *testing.T) {
	dir := t.TempDir()
	current := touch(t, dir, "a.jpg")
	link := filepath.Join(dir, "photo.jpg")
	if err := os.Link(current, link); err != nil {
		t.Skipf("hard links not supported: %v", err)
	}

	out := NewResolver().Resolve(current, "photo")

	if out.Reason != Renamed || !out.Performed {
		t.Fatalf("Resolve() = %+v, want Renamed", out)
	}
	if out.FinalName != "photo_1.jpg" {
		t.Errorf("FinalName = %q, want %q", out.FinalName, "photo_1.jpg")
	}
	assertMissing(t, current)
	assertExists(t, link)
	assertExists(t, filepath.Join(dir, "photo_1.jpg"))
}

func TestResolve_CaseChange(t *testing.T) {
	dir := t.TempDir()
	current := touch(t, dir, "Photo.jpg")

	out := NewResolver().Resolve(current, "photo")

	if out.Reason != Renamed || out.FinalName != "photo.jpg" {
		t.Errorf("Resolve() = %+v, want Renamed to photo.jpg", out)
	}
}

func TestResolve_KeepsCurrentExtension(t *testing.T) {
	dir := t.TempDir()
	current := touch(t, dir, "clip.MOV")

	out := NewResolver().Resolve(current, "beach_sunset")

	if out.FinalName != "beach_sunset.MOV" {
		t.Errorf("FinalName = %q, want %q", out.FinalName, "beach_sunset.MOV")
	}
}

func TestResolve_CollisionExhausted(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "photo.jpg")
	for i := 1; i <= 99; i++ {
		touch(t, dir, fmt.Sprintf("photo_%d.jpg", i))
	}
	current := touch(t, dir, "IMG_0003.jpg")

	out := NewResolver().Resolve(current, "photo")

	if out.Reason != CollisionExhausted || out.Performed {
		t.Fatalf("Resolve() = %+v, want CollisionExhausted", out)
	}
	if out.FinalName != "IMG_0003.jpg" {
		t.Errorf("FinalName = %q, want original name", out.FinalName)
	}
	assertExists(t, current)
	assertMissing(t, filepath.Join(dir, "photo_100.jpg"))
}

func TestResolve_FilesystemError(t *testing.T) {
	dir := t.TempDir()
	current := touch(t, dir, "IMG_0004.jpg")
	r := NewResolver()
	r.rename = func(string, string) error { return errors.New("read-only filesystem") }

	out := r.Resolve(current, "sunset")

	if out.Reason != FilesystemError || out.Performed {
		t.Fatalf("Resolve() = %+v, want FilesystemError", out)
	}
	if out.Err == nil {
		t.Error("Err = nil, want the rename error")
	}
	if out.FinalPath != current {
		t.Errorf("FinalPath = %q, want %q", out.FinalPath, current)
	}
	assertExists(t, current)
}

func TestResolve_EmptyBase(t *testing.T) {
	dir := t.TempDir()
	current := touch(t, dir, "IMG_0005.jpg")

	out := NewResolver().Resolve(current, "")

	if out.Reason != NotNeeded {
		t.Errorf("Reason = %v, want NotNeeded", out.Reason)
	}
}

func TestReason_String(t *testing.T) {
	tests := []struct {
		r    Reason
		want string
	}{
		{NotNeeded, "NotNeeded"},
		{Renamed, "Renamed"},
		{CollisionExhausted, "CollisionExhausted"},
		{FilesystemError, "FilesystemError"},
		{Reason(42), "Reason(42)"},
	}
	for _, tt := range tests {
		if got := tt.r.String(); got != tt.want {
			t.Errorf("Reason.String() = %q, want %q", got, tt.want)
		}
	}
}
