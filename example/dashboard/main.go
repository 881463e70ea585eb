package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/kellegous/poop"
	"tinygo.org/x/bluetooth"

	racechrono_bluetooth "github.com/markubiak/racechrono-ble-diy-device/bluetooth"
)

// Streams the readings RaceChrono feeds back for the monitored
// equations to any number of browser dashboards over websocket.

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func main() {
	if err := run(context.Background()); err != nil {
		poop.HitFan(err)
	}
}

func run(ctx context.Context) error {
	var addr string
	flag.StringVar(&addr, "addr", ":8080", "http listen address")
	flag.Parse()

	peripheral, err := racechrono_bluetooth.NewPeripheral(bluetooth.DefaultAdapter)
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

	http.HandleFunc("/updates", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for u := range mon.Updates(r.Context()) {
			if err := conn.WriteJSON(u); err != nil {
				return
			}
		}
	})

	fmt.Printf("serving updates on ws://%s/updates\n", addr)
	return poop.Chain(http.ListenAndServe(addr, nil))
}
