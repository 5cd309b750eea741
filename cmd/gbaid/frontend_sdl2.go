//go:build sdl2

package main

import (
	"github.com/haltcnt/gbaid/frontend/sdl2"
	"github.com/haltcnt/gbaid/gbaid"
)

func runFrontend(system *gbaid.System, title string) error {
	return sdl2.New(system).Run(title)
}
