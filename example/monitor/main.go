package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/kellegous/poop"
	"golang.org/x/sync/errgroup"
	"tinygo.org/x/bluetooth"

	racechrono_bluetooth "github.com/markubiak/racechrono-ble-diy-device/bluetooth"
)

func main() {
	if err := run(context.Background()); err != nil {
		poop.HitFan(err)
	}
}

func run(ctx context.Context) error {
	var name string
	flag.StringVar(
		&name,
		"name",
		racechrono_bluetooth.DefaultLocalName,
		"advertised device name",
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s <equation> [<equation> ...]\n", os.Args[0])
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	peripheral, err := racechrono_bluetooth.NewPeripheral(
		bluetooth.DefaultAdapter,
		racechrono_bluetooth.WithLocalName(name),
	)
	if err != nil {
		return poop.Chain(err)
	}

	mon, err := peripheral.AddMonitor()
	if err != nil {
		return poop.Chain(err)
	}
	for _, expr := range flag.Args() {
		if _, err := mon.Add(expr, 1); err != nil {
			return poop.Chain(err)
		}
	}

	if err := peripheral.Start(); err != nil {
		return poop.Chain(err)
	}
	defer peripheral.Stop()

	fmt.Printf("advertising as %q, waiting for RaceChrono\n", name)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for u := range mon.Updates(ctx) {
			fmt.Printf("equation %d = %f\n", u.Index, u.Value)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		return poop.Chain(err)
	}
	return nil
}
