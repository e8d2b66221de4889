// Command ridealong serves a follow session over HTTP and streams its
// camera state to visualisers over gRPC.
//
// Usage:
//
//	go run ./cmd/ridealong [flags]
//
// Flags:
//
//	-listen     HTTP listen address (default: :8090)
//	-db         Path to the SQLite database (default: ridealong.db)
//	-config     Path to a JSON tuning config (optional)
//	-grpc-addr  gRPC listen address for render state (default: localhost:50061)
//	-no-grpc    Disable the gRPC render state stream
//	-follow     Comma-separated object ids to follow on startup
//	-version    Print the version and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/ridealong/internal/api"
	"github.com/banshee-data/ridealong/internal/config"
	"github.com/banshee-data/ridealong/internal/curve"
	"github.com/banshee-data/ridealong/internal/deviation/store"
	"github.com/banshee-data/ridealong/internal/navigator"
	"github.com/banshee-data/ridealong/internal/render"
	"github.com/banshee-data/ridealong/internal/scene"
	"github.com/banshee-data/ridealong/internal/session"
	"github.com/banshee-data/ridealong/internal/version"
	"github.com/banshee-data/ridealong/internal/visualiser"
)

var (
	listen     = flag.String("listen", ":8090", "HTTP listen address")
	dbFile     = flag.String("db", "ridealong.db", "Path to the SQLite database file")
	configFile = flag.String("config", "", "Path to a JSON tuning config")
	grpcAddr   = flag.String("grpc-addr", visualiser.DefaultConfig().ListenAddr, "gRPC listen address for render state")
	noGRPC     = flag.Bool("no-grpc", false, "Disable the gRPC render state stream")
	follow     = flag.String("follow", "", "Comma-separated object ids to follow on startup")
	showVer    = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println("ridealong", version.String())
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := config.Empty()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		log.Printf("Loaded tuning config from %s", *configFile)
	}

	st, err := store.Open(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()
	st.Configure(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	curves := curve.NewMemoryService()
	n, err := st.LoadInto(ctx, curves)
	if err != nil {
		log.Fatalf("Failed to load centerlines: %v", err)
	}
	log.Printf("ridealong %s", version.String())
	log.Printf("Loaded %d centerlines from %s", n, *dbFile)

	fanout := render.NewFanout()
	sess := session.New(session.Backends{
		Curves:        curves,
		Distribution:  st,
		CrossSections: scene.NewSectioner(curves),
		Bookmarks:     st,
	}, session.Options{Config: cfg, Sink: fanout})
	defer sess.Close()

	if *follow != "" {
		sel := navigator.Selection{IDs: strings.Split(*follow, ",")}
		if err := sess.SelectCurve(ctx, sel, curve.SampleCenter); err != nil {
			log.Fatalf("Failed to follow %s: %v", *follow, err)
		}
		log.Printf("Following %s", session.CurveID(sel.IDs))
	}

	var wg sync.WaitGroup

	if !*noGRPC {
		vcfg := visualiser.DefaultConfig()
		vcfg.ListenAddr = *grpcAddr
		vs := visualiser.NewServer(fanout, vcfg)
		if err := vs.Start(); err != nil {
			log.Fatalf("Failed to start gRPC server: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			vs.Stop()
			log.Print("gRPC server stopped")
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(sess, st).ServeMux()
		// mount the admin debugging routes (accessible only over Tailscale or localhost)
		if err := st.AttachAdminRoutes(mux); err != nil {
			log.Printf("admin routes unavailable: %v", err)
		}

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("HTTP server listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Print("graceful shutdown complete")
}
