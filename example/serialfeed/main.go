package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kellegous/poop"
	"go.bug.st/serial"
	"tinygo.org/x/bluetooth"

	racechrono_bluetooth "github.com/markubiak/racechrono-ble-diy-device/bluetooth"
)

// Reads single-byte sensor samples from a UART-attached sensor and
// feeds them to RaceChrono as spoofed bus messages.

func main() {
	if err := run(context.Background()); err != nil {
		poop.HitFan(err)
	}
}

func run(ctx context.Context) error {
	var busID uint
	flag.UintVar(&busID, "bus-id", 0x42, "bus identifier for the spoofed samples")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s <serial port>\n", os.Args[0])
		os.Exit(1)
	}

	port, err := serial.Open(flag.Arg(0), &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	})
	if err != nil {
		return poop.Chain(err)
	}
	defer port.Close()

	peripheral, err := racechrono_bluetooth.NewPeripheral(bluetooth.DefaultAdapter)
	if err != nil {
		return poop.Chain(err)
	}

	spoof, err := peripheral.AddCANSpoof(func(data []byte) {
		fmt.Printf("filter write: %v\n", data)
	})
	if err != nil {
		return poop.Chain(err)
	}

	if err := peripheral.Start(); err != nil {
		return poop.Chain(err)
	}
	defer peripheral.Stop()

	var buf [64]byte
	for {
		n, err := port.Read(buf[:])
		if err != nil {
			return poop.Chain(err)
		}

		// Every byte off the wire is one sample. Samples that arrive
		// while no peer is connected are dropped by the spoofer.
		for _, b := range buf[:n] {
			if err := spoof.Update(uint32(busID), b); err != nil {
				return poop.Chain(err)
			}
		}
	}
}
