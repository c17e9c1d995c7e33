package main

import (
    "os"

    vaultcli "github.com/amirimatin/vault-check/pkg/cli"
)

func main() {
    cmd := vaultcli.NewLeaderCmd()
    cmd.Use = "check-vault-leader"
    os.Exit(vaultcli.Execute(cmd))
}
