package main

import (
    "os"

    vaultcli "github.com/amirimatin/vault-check/pkg/cli"
)

func main() {
    cmd := vaultcli.NewSealCmd()
    cmd.Use = "check-vault-seal"
    os.Exit(vaultcli.Execute(cmd))
}
