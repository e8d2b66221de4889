// Command ridealong-tui follows curves from a ridealong database in the
// terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/ridealong/internal/config"
	"github.com/banshee-data/ridealong/internal/curve"
	"github.com/banshee-data/ridealong/internal/deviation/store"
	"github.com/banshee-data/ridealong/internal/render"
	"github.com/banshee-data/ridealong/internal/scene"
	"github.com/banshee-data/ridealong/internal/session"
	"github.com/banshee-data/ridealong/internal/tui"
	"github.com/banshee-data/ridealong/internal/version"
)

var (
	dbFile     = flag.String("db", "ridealong.db", "Path to the SQLite database file")
	configFile = flag.String("config", "", "Path to a JSON tuning config")
	logFile    = flag.String("log", "ridealong-tui.log", "Log file (the terminal is taken by the UI)")
	showVer    = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()
	if *showVer {
		fmt.Println("ridealong-tui", version.String())
		return
	}

	f, err := tea.LogToFile(*logFile, "ridealong")
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer f.Close()

	cfg := config.Empty()
	if *configFile != "" {
		if cfg, err = config.Load(*configFile); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	st, err := store.Open(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()
	st.Configure(cfg)

	curves := curve.NewMemoryService()
	if _, err := st.LoadInto(context.Background(), curves); err != nil {
		log.Fatalf("Failed to load centerlines: %v", err)
	}

	sess := session.New(session.Backends{
		Curves:        curves,
		Distribution:  st,
		CrossSections: scene.NewSectioner(curves),
		Bookmarks:     st,
	}, session.Options{Config: cfg, Sink: render.NewFanout()})
	defer sess.Close()

	m := tui.New(sess, curves.IDs(), st)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
