package file

import (
    "context"
    "os"
    "path/filepath"
    "testing"
)

func writeFile(t *testing.T, path, content string) {
    t.Helper()
    if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
        t.Fatalf("write %s: %v", path, err)
    }
}

func TestResolveKeepsFileOrder(t *testing.T) {
    dir := t.TempDir()
    p := filepath.Join(dir, "targets")
    writeFile(t, p, "# vault members\nvault-c\n\nvault-a, vault-b\n")
    got, err := New(Options{Path: p}).Resolve(context.Background(), "ignored")
    if err != nil { t.Fatalf("resolve: %v", err) }
    want := []string{"vault-c", "vault-a", "vault-b"}
    if len(got) != len(want) {
        t.Fatalf("got %#v want %#v", got, want)
    }
    for i := range want {
        if got[i] != want[i] { t.Fatalf("item %d: got %q want %q", i, got[i], want[i]) }
    }
}

func TestResolveGlob(t *testing.T) {
    dir := t.TempDir()
    writeFile(t, filepath.Join(dir, "b.targets"), "10.0.0.2\n")
    writeFile(t, filepath.Join(dir, "a.targets"), "10.0.0.1\n")
    got, err := New(Options{Path: filepath.Join(dir, "*.targets")}).Resolve(context.Background(), "")
    if err != nil { t.Fatalf("resolve: %v", err) }
    if len(got) != 2 || got[0] != "10.0.0.1" || got[1] != "10.0.0.2" {
        t.Fatalf("unexpected targets: %#v", got)
    }
}

func TestResolveErrors(t *testing.T) {
    dir := t.TempDir()
    if _, err := New(Options{Path: filepath.Join(dir, "missing")}).Resolve(context.Background(), ""); err == nil {
        t.Fatalf("expected error for missing file")
    }
    empty := filepath.Join(dir, "empty")
    writeFile(t, empty, "# nothing here\n")
    if _, err := New(Options{Path: empty}).Resolve(context.Background(), ""); err == nil {
        t.Fatalf("expected error for file without targets")
    }
}
