package racechrono

import "time"

// Opcode identifies a device-to-peer message on the monitor config
// channel.
type Opcode byte

const (
	// OpcodeReset asks the peer to discard all registered equations.
	OpcodeReset Opcode = 0
	// OpcodeChunkMore carries equation text with more chunks to follow.
	OpcodeChunkMore Opcode = 2
	// OpcodeChunkFinal carries the last chunk of an equation's text.
	OpcodeChunkFinal Opcode = 3
	// OpcodeUpdateAll asks the peer to resend every current value.
	OpcodeUpdateAll Opcode = 4
)

// State is the monitor's position in the registration/refresh ladder.
type State byte

const (
	// StateUninitialized is the transient state before Start.
	StateUninitialized State = iota
	// StateStarted means registration is in progress or waiting on a peer.
	StateStarted
	// StateActive means the peer acknowledged registration or values
	// arrived recently.
	StateActive
	// StateForcedRefresh means a refresh request went out and the peer
	// has not answered yet.
	StateForcedRefresh
)

var stateText = map[State]string{
	StateUninitialized: "Uninitialized",
	StateStarted:       "Started",
	StateActive:        "Active",
	StateForcedRefresh: "ForcedRefresh",
}

func (s State) String() string {
	return stateText[s]
}

const (
	// InitTimeout is the retry interval while registration is pending.
	InitTimeout = 1000 * time.Millisecond
	// RefreshTimeout is how long the monitor waits for values before
	// forcing a refresh.
	RefreshTimeout = 1500 * time.Millisecond
	// ResetTimeout is how long the monitor tolerates silence before a
	// full protocol restart. Must exceed RefreshTimeout.
	ResetTimeout = 3000 * time.Millisecond
)
