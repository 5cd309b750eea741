//go:build !sdl2

package main

import (
	"github.com/haltcnt/gbaid/debugfrontend"
	"github.com/haltcnt/gbaid/gbaid"
)

// Default builds skip the cgo-dependent SDL2 frontend and use the
// dependency-free terminal inspector instead, matching the teacher's
// default-build/sdl2-build-tag split.
func runFrontend(system *gbaid.System, title string) error {
	term, err := debugfrontend.New(system)
	if err != nil {
		return err
	}
	return term.Run()
}
