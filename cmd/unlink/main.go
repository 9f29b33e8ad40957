package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"unlink/objemit"
	"unlink/unlinker"
)

func unlinkCmd(c *cli.Context) error {
	args := c.Args()
	if args.Len() < 1 {
		return cli.Exit("Insufficient arguments", 1)
	}

	var romPath, srcDir string
	if args.Len() == 1 {
		romPath = args.First()
	} else {
		srcDir = args.Get(0)
		romPath = args.Get(1)
	}

	opts := unlinker.Options{
		ROMPath:    romPath,
		SrcDir:     srcDir,
		OutDir:     c.String("out"),
		IslandMode: c.String("islandguess"),
	}

	var sink objemit.Sink
	if c.Bool("dry-run") {
		sink = objemit.NewTextSink(os.Stdout)
	} else {
		f, err := openReport(c.String("report"))
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer f.Close()
		sink = objemit.NewTextSink(f)
	}

	if _, err := unlinker.Run(opts, sink); err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

func openReport(path string) (*os.File, error) {
	if path == "" || path == "-" {
		return os.Stdout, nil
	}
	return os.Create(path)
}

func main() {
	app := cli.NewApp()
	app.Name = "unlink"
	app.Usage = "Unlink a classic Mac ROM image back into relocatable object files"
	app.ArgsUsage = "ROM | SRC ROM"
	app.Action = unlinkCmd
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "out",
			Usage: "directory WRITEOUT object files are written relative to (default: ROM's directory)",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "render the object stream to stdout, ignoring --report (WRITEOUT files are still written)",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "write the rendered object stream to this file instead of stdout",
		},
		&cli.StringFlag{
			Name:  "islandguess",
			Usage: "override island handling: ON, HIDE, or OFF (an ISLANDGUESS directive at offset 0 takes precedence)",
		},
	}
	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}
