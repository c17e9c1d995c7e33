package file

import (
    "bufio"
    "context"
    "fmt"
    "os"
    "path/filepath"
    "sort"
    "strings"

    "github.com/amirimatin/vault-check/pkg/discovery"
)

// Options configures file-based resolution.
type Options struct {
    // Path to a file listing targets, one per line or comma-separated.
    // Lines starting with '#' are comments. A glob pattern reads every
    // matching file in lexical order.
    Path string
}

type impl struct {
    opts Options
}

// New returns a Resolver reading targets from a file. The cluster address
// passed to Resolve is ignored.
func New(opts Options) discovery.Resolver { return &impl{opts: opts} }

func (i *impl) Resolve(ctx context.Context, _ string) ([]string, error) {
    if i.opts.Path == "" {
        return nil, fmt.Errorf("file: empty path")
    }
    paths := []string{i.opts.Path}
    if _, err := os.Stat(i.opts.Path); err != nil {
        matches, gerr := filepath.Glob(i.opts.Path)
        if gerr != nil || len(matches) == 0 {
            return nil, fmt.Errorf("file: %w", err)
        }
        sort.Strings(matches)
        paths = matches
    }
    var out []string
    for _, p := range paths {
        if err := ctx.Err(); err != nil {
            return nil, err
        }
        targets, err := loadFile(p)
        if err != nil {
            return nil, err
        }
        out = append(out, targets...)
    }
    if len(out) == 0 {
        return nil, fmt.Errorf("file: no targets in %s", i.opts.Path)
    }
    return out, nil
}

func loadFile(path string) ([]string, error) {
    f, err := os.Open(path)
    if err != nil { return nil, fmt.Errorf("file: %w", err) }
    defer f.Close()
    var targets []string
    s := bufio.NewScanner(f)
    for s.Scan() {
        line := strings.TrimSpace(s.Text())
        if line == "" || strings.HasPrefix(line, "#") { continue }
        // allow comma-separated per line
        for _, p := range strings.Split(line, ",") {
            p = strings.TrimSpace(p)
            if p != "" { targets = append(targets, p) }
        }
    }
    if err := s.Err(); err != nil { return nil, fmt.Errorf("file: read %s: %w", path, err) }
    return targets, nil
}
