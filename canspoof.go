package racechrono

import "github.com/kellegous/poop"

// CANSpoof frames single-byte sensor samples as bus messages so the
// peer's CAN receiver consumes them as native traffic. It keeps no
// state and never retries; every sample is independent and delivered
// at most once.
type CANSpoof struct {
	tx Transport
}

// NewCANSpoof builds a spoofer notifying samples through tx.
func NewCANSpoof(tx Transport) *CANSpoof {
	return &CANSpoof{tx: tx}
}

// Update pushes one sample on the fake bus channel. Without a
// connected peer the sample is dropped silently.
func (s *CANSpoof) Update(id uint32, data byte) error {
	if s.tx.Connections() == 0 {
		return nil
	}
	return poop.Chain(writeSampleFrame(s.tx, id, data))
}
