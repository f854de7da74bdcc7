package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/darwin-tools/darwinmask"
	"github.com/darwin-tools/darwinmask/convert"
	"github.com/darwin-tools/darwinmask/darwin"
)

func TestExitCode(t *testing.T) {
	record := func(err error) error {
		return &convert.RecordError{Path: "x.json", Err: err}
	}
	tests := []struct {
		err error
		exp int
	}{
		{nil, exitOK},
		{fmt.Errorf("%w: nope", convert.ErrMaskDirNotFound), exitMaskDirNotFound},
		{fmt.Errorf("%w in nope", convert.ErrNoRecords), exitNoRecords},
		{fmt.Errorf("%w: 1 of 2", convert.ErrPartial), exitPartial},
		{record(&darwinmask.RLEError{Kind: darwinmask.RLESumMismatch}), exitBadRLE},
		{record(fmt.Errorf("%w: eof", darwin.ErrMalformed)), exitBadRecord},
		{record(darwin.ErrNoSlots), exitBadRecord},
		{record(darwin.ErrNoRasterLayer), exitBadRecord},
		{record(fs.ErrPermission), exitFailure},
		{errors.New("other"), exitFailure},
	}
	for _, tc := range tests {
		if got := exitCode(tc.err); got != tc.exp {
			t.Fatalf("exit code for %v, got %d, expected %d", tc.err, got, tc.exp)
		}
	}
}

func TestParseFlags(t *testing.T) {
	parser, err := newParser(func(code int) {
		t.Fatalf("parser exited with %d", code)
	})
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}

	tests := []struct {
		args []string
		exp  options
	}{
		{[]string{"-M", "in"}, options{MaskDir: "in", SaveDir: convert.DefaultSaveDir}},
		{[]string{"--mask-dir", "in", "--save-dir", "out"}, options{MaskDir: "in", SaveDir: "out"}},
		{[]string{"-M", "in", "-S", "out", "-k", "-w", "-v"}, options{MaskDir: "in", SaveDir: "out", KeepGoing: true, Watch: true, Verbose: true}},
	}
	for _, tc := range tests {
		cli = options{}
		if _, err := parser.Parse(tc.args); err != nil {
			t.Fatalf("parse %v: %v", tc.args, err)
		}
		if cli != tc.exp {
			t.Fatalf("parse %v, got %+v, expected %+v", tc.args, cli, tc.exp)
		}
	}

	for _, args := range [][]string{{}, {"-S", "out"}, {"-M", "in", "extra"}} {
		cli = options{}
		if _, err := parser.Parse(args); err == nil {
			t.Fatalf("parse %v: missing error", args)
		}
	}
}

func TestMain0(t *testing.T) {
	saveDir := filepath.Join(t.TempDir(), "Mask")
	file := filepath.Join(t.TempDir(), "a.json")
	if err := os.WriteFile(file, []byte(`{}`), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	tests := []struct {
		maskDir string
		exp     int
	}{
		{filepath.Join(t.TempDir(), "missing"), exitMaskDirNotFound},
		{file, exitMaskDirNotFound},
		{t.TempDir(), exitNoRecords},
	}
	for _, tc := range tests {
		cli = options{MaskDir: tc.maskDir, SaveDir: saveDir}
		if got := main0(); got != tc.exp {
			t.Fatalf("main0 with mask dir %s, got %d, expected %d", tc.maskDir, got, tc.exp)
		}
		if _, err := os.Stat(saveDir); !os.IsNotExist(err) {
			t.Fatalf("main0 with mask dir %s created save dir (%v)", tc.maskDir, err)
		}
	}

	maskDir := filepath.Dir(file)
	rec := `{"item": {"slots": [{"width": 2, "height": 2}]}, "annotations": [{"raster_layer": {"dense_rle": [0, 1, 1, 3]}}]}`
	if err := os.WriteFile(file, []byte(rec), 0644); err != nil {
		t.Fatalf("write record: %v", err)
	}
	cli = options{MaskDir: maskDir, SaveDir: saveDir}
	if got := main0(); got != exitOK {
		t.Fatalf("main0, got %d, expected %d", got, exitOK)
	}
	if _, err := os.Stat(filepath.Join(saveDir, "a_mask.png")); err != nil {
		t.Fatalf("mask not written: %v", err)
	}
}
