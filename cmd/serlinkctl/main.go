package main

import (
	"github.com/robotalks/serlink/pkg/cli/sh"
	"github.com/robotalks/serlink/pkg/l0/env"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
