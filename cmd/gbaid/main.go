// Command gbaid is the CLI entrypoint (spec.md section 4.N): loads a BIOS
// and ROM image (plus an optional save blob), builds a gbaid.System, and
// hands it to whichever frontend this binary was built with.
//
// Grounded on: the teacher's root main.go, whose urfave/cli app with a
// single --rom flag and NArg() fallback is kept nearly verbatim, extended
// with --bios/--save/--config for the GBA's extra required inputs.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/haltcnt/gbaid/gbaid"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "gbaid"
	app.Usage = "gbaid --bios <bios.bin> <ROM file>"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "bios", Usage: "path to the BIOS image"},
		cli.StringFlag{Name: "rom", Usage: "path to the ROM file"},
		cli.StringFlag{Name: "save", Usage: "path to a save file to load/write back"},
		cli.StringFlag{Name: "config", Usage: "path to a TOML config file"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("gbaid exiting", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	biosPath := c.String("bios")
	if biosPath == "" {
		biosPath = cfg.BIOSPath
	}
	if biosPath == "" {
		return errors.New("no BIOS path provided (--bios or config bios_path)")
	}

	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	savePath := c.String("save")
	if savePath == "" {
		savePath = cfg.SavePath
	}

	bios, err := os.ReadFile(biosPath)
	if err != nil {
		return fmt.Errorf("reading BIOS: %w", err)
	}
	rom, err := os.ReadFile(romPath)
	if err != nil {
		return fmt.Errorf("reading ROM: %w", err)
	}

	var save []byte
	if savePath != "" {
		if data, err := os.ReadFile(savePath); err == nil {
			save = data
		}
	}

	system, err := gbaid.New(bios, rom, save, cfg.SampleRate)
	if err != nil {
		return fmt.Errorf("building system: %w", err)
	}

	if err := runFrontend(system, system.Cart.Title()); err != nil {
		return err
	}

	if savePath != "" {
		if data := system.ExportSave(); data != nil {
			if err := os.WriteFile(savePath, data, 0644); err != nil {
				slog.Warn("failed to write save file", "error", err)
			}
		}
	}
	return nil
}
