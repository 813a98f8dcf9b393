package storage

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/containerd/errdefs"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(t.TempDir(), NewPlainDriver())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func writeVolumeFile(t *testing.T, e *Engine, id, name, content string) {
	t.Helper()
	p := filepath.Join(e.Path(id), name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(p), err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
}

func readVolumeFile(t *testing.T, e *Engine, id, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(e.Path(id), name))
	if err != nil {
		t.Fatalf("read %s in %s: %v", name, id, err)
	}
	return string(b)
}

func TestNewEngineEmptyRoot(t *testing.T) {
	if _, err := NewEngine("", NewPlainDriver()); !errdefs.IsInvalidArgument(err) {
		t.Fatalf("NewEngine(\"\") = %v, want invalid argument", err)
	}
}

func TestCreate(t *testing.T) {
	e := newTestEngine(t)

	if err := e.Create("img_42002"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !e.Exists("img_42002") {
		t.Fatal("volume missing after Create")
	}

	if err := e.Create("img_42002"); !errdefs.IsAlreadyExists(err) {
		t.Fatalf("duplicate Create = %v, want already exists", err)
	}
}

func TestCreateInvalidID(t *testing.T) {
	e := newTestEngine(t)

	for _, id := range []string{"", ".hidden", "a/b", `a\b`, ".stage-img_1"} {
		if err := e.Create(id); !errdefs.IsInvalidArgument(err) {
			t.Errorf("Create(%q) = %v, want invalid argument", id, err)
		}
	}
}

func TestSnapshotIsolation(t *testing.T) {
	e := newTestEngine(t)

	if err := e.Create("img_42002"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	writeVolumeFile(t, e, "img_42002", "data.txt", "one")

	if err := e.Snapshot("img_42002", "ps_42100"); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	// Writes on either side must be invisible to the other.
	writeVolumeFile(t, e, "img_42002", "data.txt", "two")
	writeVolumeFile(t, e, "ps_42100", "local.txt", "container only")

	if got := readVolumeFile(t, e, "ps_42100", "data.txt"); got != "one" {
		t.Fatalf("snapshot data.txt = %q, want %q", got, "one")
	}
	if _, err := os.Stat(filepath.Join(e.Path("img_42002"), "local.txt")); !os.IsNotExist(err) {
		t.Fatalf("container write leaked into source: stat = %v", err)
	}
}

func TestSnapshotErrors(t *testing.T) {
	e := newTestEngine(t)

	if err := e.Snapshot("img_42002", "ps_42100"); !errdefs.IsNotFound(err) {
		t.Fatalf("Snapshot from missing source = %v, want not found", err)
	}

	if err := e.Create("img_42002"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := e.Create("ps_42100"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := e.Snapshot("img_42002", "ps_42100"); !errdefs.IsAlreadyExists(err) {
		t.Fatalf("Snapshot onto existing target = %v, want already exists", err)
	}
}

func TestDelete(t *testing.T) {
	e := newTestEngine(t)

	if err := e.Delete("img_42002"); !errdefs.IsNotFound(err) {
		t.Fatalf("Delete of missing volume = %v, want not found", err)
	}

	if err := e.Create("img_42002"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := e.Delete("img_42002"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if e.Exists("img_42002") {
		t.Fatal("volume still present after Delete")
	}
}

func TestDeleteBusy(t *testing.T) {
	e := newTestEngine(t)

	if err := e.Create("ps_42100"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	release, err := e.Acquire("ps_42100")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if err := e.Delete("ps_42100"); !errdefs.IsUnavailable(err) {
		t.Fatalf("Delete of acquired volume = %v, want unavailable", err)
	}
	if !e.Exists("ps_42100") {
		t.Fatal("busy volume was deleted")
	}

	release()

	if err := e.Delete("ps_42100"); err != nil {
		t.Fatalf("Delete after release: %v", err)
	}
}

func TestList(t *testing.T) {
	e := newTestEngine(t)

	for _, id := range []string{"img_42002", "img_42003", "ps_42100"} {
		if err := e.Create(id); err != nil {
			t.Fatalf("Create(%q): %v", id, err)
		}
	}

	// Stray files and hidden directories must not surface as volumes.
	if err := os.WriteFile(filepath.Join(e.Root(), "img_notadir"), nil, 0o644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	imgs, err := e.List("img_")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	slices.Sort(imgs)
	if want := []string{"img_42002", "img_42003"}; !slices.Equal(imgs, want) {
		t.Fatalf("List(img_) = %v, want %v", imgs, want)
	}

	all, err := e.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List(\"\") = %v, want 3 volumes", all)
	}

	// A fresh scan observes deletions.
	if err := e.Delete("img_42002"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	imgs, err = e.List("img_")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if want := []string{"img_42003"}; !slices.Equal(imgs, want) {
		t.Fatalf("List(img_) after delete = %v, want %v", imgs, want)
	}
}

func TestReplace(t *testing.T) {
	e := newTestEngine(t)

	if err := e.Create("img_42002"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	writeVolumeFile(t, e, "img_42002", "base.txt", "original")

	if err := e.Create("ps_42100"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	writeVolumeFile(t, e, "ps_42100", "tool.txt", "installed")

	if err := e.Replace("img_42002", "ps_42100"); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	// The image now mirrors the container. The container is untouched.
	if got := readVolumeFile(t, e, "img_42002", "tool.txt"); got != "installed" {
		t.Fatalf("replaced tool.txt = %q, want %q", got, "installed")
	}
	if _, err := os.Stat(filepath.Join(e.Path("img_42002"), "base.txt")); !os.IsNotExist(err) {
		t.Fatalf("displaced content survived replace: stat = %v", err)
	}
	if got := readVolumeFile(t, e, "ps_42100", "tool.txt"); got != "installed" {
		t.Fatalf("source tool.txt = %q, want %q", got, "installed")
	}

	// No staging volume may remain.
	entries, err := os.ReadDir(e.Root())
	if err != nil {
		t.Fatalf("read root: %v", err)
	}
	for _, ent := range entries {
		if strings.HasPrefix(ent.Name(), stagingPrefix) {
			t.Fatalf("staging volume %q left behind", ent.Name())
		}
	}
}

func TestReplaceErrors(t *testing.T) {
	e := newTestEngine(t)

	if err := e.Create("img_42002"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	writeVolumeFile(t, e, "img_42002", "base.txt", "original")

	if err := e.Replace("img_42002", "ps_42100"); !errdefs.IsNotFound(err) {
		t.Fatalf("Replace from missing source = %v, want not found", err)
	}
	if err := e.Replace("img_42999", "img_42002"); !errdefs.IsNotFound(err) {
		t.Fatalf("Replace of missing target = %v, want not found", err)
	}

	// A failed replace must leave the target untouched.
	if got := readVolumeFile(t, e, "img_42002", "base.txt"); got != "original" {
		t.Fatalf("target base.txt after failed replace = %q, want %q", got, "original")
	}
}

func TestReplaceDegraded(t *testing.T) {
	e := newTestEngine(t)

	if err := e.Create("img_42002"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	writeVolumeFile(t, e, "img_42002", "base.txt", "original")

	stagePath := filepath.Join(e.Root(), stagingPrefix+"img_42002")
	if err := os.Mkdir(stagePath, 0o755); err != nil {
		t.Fatalf("mkdir stage: %v", err)
	}
	if err := os.WriteFile(filepath.Join(stagePath, "tool.txt"), []byte("installed"), 0o644); err != nil {
		t.Fatalf("write stage file: %v", err)
	}

	if err := e.replaceDegraded("img_42002", stagePath); err != nil {
		t.Fatalf("replaceDegraded: %v", err)
	}

	if got := readVolumeFile(t, e, "img_42002", "tool.txt"); got != "installed" {
		t.Fatalf("degraded replace tool.txt = %q, want %q", got, "installed")
	}
	if _, err := os.Stat(stagePath); !os.IsNotExist(err) {
		t.Fatalf("staging path survived degraded replace: stat = %v", err)
	}
}

func TestSweepStagingSkipsHeldReplace(t *testing.T) {
	root := t.TempDir()
	e, err := NewEngine(root, NewPlainDriver())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	// Hold the target's mutation lock as a mid-flight Replace would, with
	// its snapshot sitting in staging.
	release, err := e.lockExclusive("img_42002")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	stage := filepath.Join(root, stagingPrefix+"img_42002")
	if err := os.Mkdir(stage, 0o755); err != nil {
		t.Fatalf("mkdir stage: %v", err)
	}
	if err := os.WriteFile(filepath.Join(stage, "tool.txt"), []byte("installed"), 0o644); err != nil {
		t.Fatalf("write stage file: %v", err)
	}

	// A second engine starting on the same root must not touch it.
	if _, err := NewEngine(root, NewPlainDriver()); err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if _, err := os.Stat(filepath.Join(stage, "tool.txt")); err != nil {
		t.Fatalf("sweep removed the staging volume of a held replace: %v", err)
	}

	// Once the lock is released the staging volume is genuinely stale.
	release()
	if _, err := NewEngine(root, NewPlainDriver()); err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if _, err := os.Stat(stage); !os.IsNotExist(err) {
		t.Fatalf("stale staging volume survived sweep after lock release: stat = %v", err)
	}
}

func TestSweepStaging(t *testing.T) {
	root := t.TempDir()

	stale := filepath.Join(root, stagingPrefix+"img_42002")
	if err := os.Mkdir(stale, 0o755); err != nil {
		t.Fatalf("mkdir stale stage: %v", err)
	}

	if _, err := NewEngine(root, NewPlainDriver()); err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale staging volume survived engine construction: stat = %v", err)
	}
}
