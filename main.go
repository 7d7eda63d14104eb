/*
Velosim is a stochastic cellular-automaton microsimulator of mixed
bicycle/motor-vehicle traffic on a one-directional ring road. The engine
lives in the road package; this shell reads the run definition from
config.yaml, executes a fixed number of ticks, and writes one JSON record per
tick to stdout. With -serve set it also hosts a small live view of the run
(websocket feed plus rolling means), which is handy when tuning cohort
parameters against the published density/speed curves.
*/

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"golang.org/x/sync/errgroup"

	"velosim/road"
	"velosim/server"
	"velosim/sim"
)

var (
	dbg        *bool
	serve      *bool
	nworkers   *int
	host       *string
	port       *string
	configPath *string
	addr       string
)

// TODO: per 12-factor rules, these should be taken from env or config-map; KISS for now.
func init() {
	dbg = flag.Bool("debug", false, "verify engine invariants at every tick boundary")
	serve = flag.Bool("serve", false, "host the live view alongside the run")
	nworkers = flag.Int("nworkers", runtime.NumCPU(), "number of proposal worker routines")
	host = flag.String("host", "", "The host ip")
	port = flag.String("port", "8080", "The host port")
	configPath = flag.String("config", "./config.yaml", "simulation definition file")
	flag.Parse()
	addr = *host + ":" + *port
}

// buildRecord is the run preamble: the full agent configs plus road geometry
// and densities, written once before the tick records.
type buildRecord struct {
	RoadConfig  road.RoadConfig `json:"build_info"`
	NumBikes    int             `json:"num_bikes"`
	NumCars     int             `json:"num_cars"`
	Ticks       int             `json:"num_iterations"`
	CarDensity  float64         `json:"car_density"`
	BikeDensity float64         `json:"bike_density"`
}

func runApp() (err error) {
	var cfg *sim.SimConfig
	if cfg, err = sim.FromYaml(*configPath); err != nil {
		return
	}

	appCtx, appCancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer appCancel()

	simCtx, simCancel, err := cfg.WithSimDeadline(appCtx)
	if err != nil {
		return
	}
	defer simCancel()

	roadCfg, err := cfg.RoadConfig(*nworkers)
	if err != nil {
		return
	}
	ring, err := road.New(roadCfg)
	if err != nil {
		return
	}

	enc := json.NewEncoder(os.Stdout)
	if err = enc.Encode(buildRecord{
		RoadConfig:  roadCfg,
		NumBikes:    ring.NumBikes(),
		NumCars:     ring.NumCars(),
		Ticks:       cfg.Ticks,
		CarDensity:  ring.CarDensity(),
		BikeDensity: ring.BikeDensity(),
	}); err != nil {
		return
	}
	if err = enc.Encode(sim.TickRecord{Tick: 0, Snapshot: ring.Snapshot()}); err != nil {
		return
	}

	stats := sim.NewRollingStats()
	records := make(chan sim.TickRecord, 1)

	// Blocks only on stdout; the live feed gets records best-effort, since a
	// missing or slow client must not stall the run.
	exportRecord := func(ctx context.Context, rec sim.TickRecord) {
		_ = enc.Encode(rec)
		stats.Record(rec)
		select {
		case records <- rec:
		default:
		}
	}

	if !*serve {
		return sim.Run(simCtx, ring, cfg.Ticks, *dbg, exportRecord)
	}

	group, groupCtx := errgroup.WithContext(appCtx)
	group.Go(func() error {
		if runErr := sim.Run(simCtx, ring, cfg.Ticks, *dbg, exportRecord); runErr != nil {
			return runErr
		}
		// Keep serving the final state until interrupted.
		<-groupCtx.Done()
		return nil
	})
	group.Go(func() error {
		return server.NewServer(groupCtx, addr, records, stats).Serve()
	})
	return group.Wait()
}

func main() {
	if err := runApp(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
