// Command mdfdump prints an MDF4 file's block tree: data groups, channel
// groups, and channels, with units, data types, and master flags.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mdf4go/mdf4"
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		fmt.Println("Usage: mdfdump <file.mf4>")
		os.Exit(1)
	}

	f, err := mdf4.Open(args[0])
	if err != nil {
		log.Fatalf("opening file: %v", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("closing file: %v", err)
		}
	}()

	fmt.Printf("MDF version %d, start time %d ns\n", f.VersionNumber(), f.StartTime())

	for dgi, dg := range f.DataGroups() {
		fmt.Printf("DG[%d] record_id_size=%d\n", dgi, dg.RecordIDSize())
		for cgi, cg := range dg.ChannelGroups() {
			fmt.Printf("  CG[%d] acq=%q cycles=%d record_bytes=%d\n",
				cgi, cg.AcquisitionName(), cg.CycleCount(), cg.RecordSize())
			for _, ch := range cg.Channels() {
				fmt.Printf("    CN %-20s unit=%-10q type=%v master=%v\n",
					ch.Name(), ch.Unit(), ch.DataType(), ch.IsMaster())
			}
		}
	}
}
