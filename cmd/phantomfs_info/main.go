package main

import (
	"fmt"
	"os"

	"github.com/dsoprea/go-logging"
	"github.com/jessevdk/go-flags"

	"github.com/LiliumOS/libliliumfs"
)

type rootParameters struct {
	Filepath string `short:"f" long:"filepath" description:"File-path of a PhantomFS volume" required:"true"`
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

	f, err := os.Open(rootArguments.Filepath)
	log.PanicIf(err)

	defer f.Close()

	vol := phantomfs.NewVolume(f)
	e := phantomfs.NewEngine(vol)

	rd, err := e.GetOrReadDescriptor()
	log.PanicIf(err)

	fmt.Println(rd.Dump())

	if !rd.RootObjectId.IsNone() {
		obj, err := e.GetObjByID(rd.RootObjectId)
		log.PanicIf(err)

		fmt.Println(obj.Dump())
	}
}
