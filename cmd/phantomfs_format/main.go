package main

import (
	"fmt"
	"os"

	"github.com/dsoprea/go-logging"
	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	uuid "github.com/satori/go.uuid"

	"github.com/LiliumOS/libliliumfs"
)

type rootParameters struct {
	Filepath string `short:"f" long:"filepath" description:"File-path to format as a PhantomFS volume" required:"true"`
	Sectors  uint64 `short:"s" long:"sectors" description:"Volume size, in sectors" required:"true"`
	Label    string `short:"l" long:"label" description:"Volume label"`
}

var rootArguments = new(rootParameters)

func main() {
	defer func() {
		if state := recover(); state != nil {
			err := log.Wrap(state.(error))
			log.PrintError(err)
			os.Exit(-1)
		}
	}()

	p := flags.NewParser(rootArguments, flags.Default)

	_, err := p.Parse()
	if err != nil {
		os.Exit(1)
	}

	f, err := os.OpenFile(rootArguments.Filepath, os.O_RDWR|os.O_CREATE, 0644)
	log.PanicIf(err)

	defer f.Close()

	log.PanicIf(f.Truncate(int64(rootArguments.Sectors) * phantomfs.SectorSize))

	vol := phantomfs.NewVolume(f)

	e, err := phantomfs.CreateFilesystem(vol, rootArguments.Label, uuid.NewV4(), rootArguments.Sectors)
	log.PanicIf(err)

	log.PanicIf(e.Sync())

	fmt.Printf("formatted %s (%s)\n", rootArguments.Filepath, humanize.Bytes(rootArguments.Sectors*phantomfs.SectorSize))
}
