package main

import (
    "os"

    vaultcli "github.com/amirimatin/vault-check/pkg/cli"
)

func main() {
    os.Exit(vaultcli.Execute(vaultcli.NewRootCommand()))
}
