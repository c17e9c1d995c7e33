package static

import (
    "context"
    "testing"
)

func TestParse(t *testing.T) {
    cases := []struct{
        in   string
        want []string
    }{
        {"", nil},
        {"vault-1", []string{"vault-1"}},
        {" vault-1 , vault-2 ", []string{"vault-1","vault-2"}},
        {",,vault-1, ,vault-2,", []string{"vault-1","vault-2"}},
    }
    for _, c := range cases {
        got := Parse(c.in)
        if len(got) != len(c.want) {
            t.Fatalf("len mismatch for %q: got %d want %d", c.in, len(got), len(c.want))
        }
        for i := range got {
            if got[i] != c.want[i] {
                t.Fatalf("[%q] item %d: got %q want %q", c.in, i, got[i], c.want[i])
            }
        }
    }
}

func TestIdentity(t *testing.T) {
    r := Identity()
    for _, in := range []string{"vault.example.com", "10.0.0.5", "", "a,b", " spaced "} {
        got, err := r.Resolve(context.Background(), in)
        if err != nil { t.Fatalf("identity(%q): %v", in, err) }
        if len(got) != 1 || got[0] != in {
            t.Fatalf("identity(%q) = %#v", in, got)
        }
    }
}

func TestList(t *testing.T) {
    got, err := List().Resolve(context.Background(), "vault-a.example.com, vault-b.example.com")
    if err != nil { t.Fatalf("list: %v", err) }
    if len(got) != 2 || got[0] != "vault-a.example.com" || got[1] != "vault-b.example.com" {
        t.Fatalf("unexpected targets: %#v", got)
    }
    if _, err := List().Resolve(context.Background(), " , "); err == nil {
        t.Fatalf("expected error for empty list")
    }
}
