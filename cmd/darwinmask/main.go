// Command darwinmask converts Darwin 2.0 JSON records with run-length encoded
// binary masks, as exported by V7 Darwin, into PNG mask images.
//
// Each record <name>.json in the mask directory results in
// <save-dir>/<name>_mask.png, a single channel 8-bit image of the item's size.
//
// Examples:
//
//	# Convert all records in Data, writing masks to Mask.
//	darwinmask -M Data
//
//	# Write to an explicit directory, continue past broken records.
//	darwinmask --mask-dir exports/ --save-dir masks/ --keep-going
//
//	# Convert, then keep converting records as they are written until interrupted.
//	darwinmask -M exports/ -w -v
package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/darwin-tools/darwinmask"
	"github.com/darwin-tools/darwinmask/convert"
	"github.com/darwin-tools/darwinmask/darwin"

	"github.com/alecthomas/kong"
)

const desc = `Converts Darwin 2.0 JSON run-length encoded binary masks to PNG.`

// Exit statuses.
const (
	exitOK = iota
	exitFailure
	exitUsage
	exitMaskDirNotFound
	exitNoRecords
	exitBadRecord
	exitBadRLE
	exitPartial
)

type options struct {
	MaskDir   string `short:"M" required:"" placeholder:"DIR" help:"Directory with masks as Darwin 2.0 JSON files."`
	SaveDir   string `short:"S" default:"${savedir}" placeholder:"DIR" help:"Directory to write PNG masks to, created if needed (default: ${default})."`
	KeepGoing bool   `short:"k" help:"Continue with the next record when one fails."`
	Watch     bool   `short:"w" help:"After converting, keep converting records created or written in the mask directory until interrupted."`
	Verbose   bool   `short:"v" help:"Print verbose output."`
}

var cli options

// newParser returns the command line parser for cli. Parse errors and help
// end the process through exit.
func newParser(exit func(int)) (*kong.Kong, error) {
	return kong.New(
		&cli,
		kong.Name("darwinmask"),
		kong.Description(desc),
		kong.Vars{"savedir": convert.DefaultSaveDir},
		kong.UsageOnError(),
		kong.Exit(exit),
	)
}

func main() {
	log.SetFlags(0)
	parser, err := newParser(func(code int) {
		if code != 0 {
			code = exitUsage
		}
		os.Exit(code)
	})
	if err != nil {
		log.Fatalf("new parser: %v", err)
	}
	_, err = parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	os.Exit(main0())
}

func main0() int {
	opts := &convert.Opts{
		SaveDir:   cli.SaveDir,
		Verbose:   cli.Verbose,
		KeepGoing: cli.KeepGoing,
	}

	// Check the mask directory before creating the save directory, so a typo
	// does not leave an empty directory behind.
	if _, err := convert.Records(cli.MaskDir); err != nil && !(cli.Watch && errors.Is(err, convert.ErrNoRecords)) {
		log.Printf("%v", err)
		return exitCode(err)
	}

	c, err := convert.New(opts)
	if err != nil {
		log.Printf("%v", err)
		return exitFailure
	}

	res, err := c.ConvertDir(cli.MaskDir)
	if err != nil && !(cli.Watch && errors.Is(err, convert.ErrNoRecords)) {
		log.Printf("%v", err)
		return exitCode(err)
	}
	log.Printf("done, %d masks written to %s", len(res.Converted), c.SaveDir())

	if !cli.Watch {
		return exitOK
	}
	return watch(c, cli.MaskDir)
}

func watch(c *convert.Converter, maskDir string) int {
	w, err := convert.NewWatcher(c, maskDir)
	if err != nil {
		log.Printf("%v", err)
		return exitFailure
	}
	defer w.Close()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-signals:
			return exitOK
		case ev, ok := <-w.Events:
			if !ok {
				log.Printf("watcher stopped")
				return exitFailure
			}
			if ev.Err != nil {
				log.Printf("%v", ev.Err)
			} else {
				log.Printf("wrote %s", ev.Output)
			}
		}
	}
}

// exitCode maps a conversion error to the process exit status.
func exitCode(err error) int {
	var rerr *darwinmask.RLEError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, convert.ErrMaskDirNotFound):
		return exitMaskDirNotFound
	case errors.Is(err, convert.ErrNoRecords):
		return exitNoRecords
	case errors.Is(err, convert.ErrPartial):
		return exitPartial
	case errors.As(err, &rerr):
		return exitBadRLE
	case errors.Is(err, darwin.ErrMalformed),
		errors.Is(err, darwin.ErrNoSlots),
		errors.Is(err, darwin.ErrBadShape),
		errors.Is(err, darwin.ErrNoRasterLayer):
		return exitBadRecord
	}
	return exitFailure
}
