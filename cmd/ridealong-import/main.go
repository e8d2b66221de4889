// Command ridealong-import loads centerlines and deviation samples into a
// ridealong database.
//
// Usage:
//
//	ridealong-import [-db ridealong.db] centerline -id road-1 [-radius 0.5] [-start 0] file.{csv,geojson}
//	ridealong-import [-db ridealong.db] samples -curve road-1 samples.csv
//	ridealong-import [-db ridealong.db] plots -curve road-1 [-from 0 -to 100] [-out dir]
//
// Centerline CSV files carry x,y,z columns. Sample CSV files carry
// profile,deviation columns with optional x,y,z.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/ridealong/internal/deviation/store"
	"github.com/banshee-data/ridealong/internal/version"
)

var (
	dbFile      = flag.String("db", "ridealong.db", "Path to the SQLite database file")
	showVersion = flag.Bool("version", false, "Print the version and exit")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-db path] centerline|samples|plots [flags] [file]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if *showVersion {
		fmt.Println("ridealong-import", version.String())
		return
	}
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	args := flag.Args()
	switch args[0] {
	case "centerline":
		err = runCenterline(ctx, st, args[1:])
	case "samples":
		err = runSamples(ctx, st, args[1:])
	case "plots":
		err = runPlots(ctx, st, args[1:])
	default:
		usage()
		err = fmt.Errorf("unknown command %q", args[0])
	}
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}
}
