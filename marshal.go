package racechrono

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/kellegous/poop"
)

// 20-byte frame cap minus the 3-byte chunk header.
const maxChunkText = 17

// invalidValueRaw is the sentinel the peer sends when an equation has
// no data.
const invalidValueRaw = math.MaxInt32

const valueRecordLen = 5

func writeControl(w io.Writer, op Opcode) error {
	if _, err := w.Write([]byte{byte(op)}); err != nil {
		return poop.Chain(err)
	}
	return nil
}

func writeChunk(w io.Writer, op Opcode, eqIndex, seq byte, text []byte) error {
	var buf bytes.Buffer
	buf.WriteByte(byte(op))
	buf.WriteByte(eqIndex)
	buf.WriteByte(seq)
	if _, err := buf.Write(text); err != nil {
		return poop.Chain(err)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return poop.Chain(err)
	}
	return nil
}

// writeEquationConfig splits expr into chunk frames written in
// sequence order. An empty expression still produces one final frame
// so the peer learns the equation exists.
func writeEquationConfig(w io.Writer, eqIndex byte, expr string) error {
	text := []byte(expr)
	for seq := byte(0); ; seq++ {
		if len(text) > maxChunkText {
			if err := writeChunk(w, OpcodeChunkMore, eqIndex, seq, text[:maxChunkText]); err != nil {
				return poop.Chain(err)
			}
			text = text[maxChunkText:]
			continue
		}

		if err := writeChunk(w, OpcodeChunkFinal, eqIndex, seq, text); err != nil {
			return poop.Chain(err)
		}
		return nil
	}
}

// decodeValueRecords calls apply for each complete 5-byte record in p.
// Rejected records and any truncated tail count as skipped.
func decodeValueRecords(p []byte, apply func(index byte, raw int32) bool) (applied, skipped int) {
	for len(p) >= valueRecordLen {
		index := p[0]
		raw := int32(binary.BigEndian.Uint32(p[1:valueRecordLen]))
		if apply(index, raw) {
			applied++
		} else {
			skipped++
		}
		p = p[valueRecordLen:]
	}

	if len(p) > 0 {
		skipped++
	}
	return applied, skipped
}

// writeSampleFrame frames one spoofed bus sample. The identifier is
// little-endian here, unlike the big-endian value-record path.
func writeSampleFrame(w io.Writer, id uint32, data byte) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, id); err != nil {
		return poop.Chain(err)
	}
	buf.WriteByte(data)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return poop.Chain(err)
	}
	return nil
}
