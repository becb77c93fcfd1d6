package main

import (
	"github.com/robotalks/xrlink/pkg/cli/sh"
	"github.com/robotalks/xrlink/pkg/env"

	_ "github.com/robotalks/xrlink/pkg/cli/cmds/sim"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
