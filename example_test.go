package racechrono_test

import (
	"context"
	"fmt"
	"log"

	"tinygo.org/x/bluetooth"

	_ "github.com/markubiak/racechrono-ble-diy-device"
	racechrono_bluetooth "github.com/markubiak/racechrono-ble-diy-device/bluetooth"
)

func ExampleMonitor_Updates() {
	// Print every decoded reading RaceChrono sends back for a
	// monitored equation.
	ctx := context.Background()

	peripheral, err := racechrono_bluetooth.NewPeripheral(bluetooth.DefaultAdapter)
	if err != nil {
		log.Fatal(err)
	}

	mon, err := peripheral.AddMonitor()
	if err != nil {
		log.Fatal(err)
	}
	if _, err := mon.Add("channel(device(obd), rpm)", 1); err != nil {
		log.Fatal(err)
	}

	if err := peripheral.Start(); err != nil {
		log.Fatal(err)
	}
	defer peripheral.Stop()

	for u := range mon.Updates(ctx) {
		fmt.Printf("equation %d: %f\n", u.Index, u.Value)
	}
}
