package main

import (
	"log"

	"github.com/jessevdk/go-flags"
)

var opts struct {
	Output    flags.Filename `short:"o" long:"output" description:"name of the .7z archive to create" default:"archive.7z"`
	Preset    int            `short:"p" long:"preset" description:"LZMA2 preset, 0-9" default:"6"`
	Workers   int            `short:"j" long:"workers" description:"worker pool size; 0 means logical CPU count"`
	BlockSize uint32         `long:"block-size" description:"intra-file block size in bytes; 0 means max(1 MiB, 2x dict size)"`
	DictSize  uint32         `long:"dict-size" description:"LZMA2 dictionary size in bytes; 0 means the preset default"`

	Args struct {
		Paths []flags.Filename `positional-arg-name:"path" description:"files or directories to add to the archive" required:"yes"`
	} `positional-args:"yes"`
}

func main() {
	p := flags.NewParser(&opts, flags.Default)

	_, err := p.Parse()
	if err == nil {
		err = run()
	}

	if err != nil && !flags.WroteHelp(err) {
		log.Printf("g7z: %v", err)
	}

	exit(err)
}
