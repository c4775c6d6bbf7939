package modbus

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Function code for "read input registers", the only transaction the sensor
// supports that we use.
const fnReadInputRegisters = 0x04

// registerCount is the size of the measurement window: one temperature
// register followed by one humidity register.
const registerCount = 2

// responseLen is the expected response size for a registerCount read:
// unit + function + byte count + 2 bytes per register + CRC16.
const responseLen = 3 + 2*registerCount + 2

// exceptionLen is the size of a Modbus exception response.
const exceptionLen = 5

// crc16 computes the Modbus CRC (poly 0xA001, init 0xFFFF) over data.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// appendCRC appends the little-endian CRC16 of frame to frame.
func appendCRC(frame []byte) []byte {
	crc := crc16(frame)
	return append(frame, byte(crc), byte(crc>>8))
}

// buildReadRequest frames a "read input registers" request for unit,
// starting at register start.
func buildReadRequest(unit byte, start uint16) []byte {
	frame := make([]byte, 6, 8)
	frame[0] = unit
	frame[1] = fnReadInputRegisters
	binary.BigEndian.PutUint16(frame[2:4], start)
	binary.BigEndian.PutUint16(frame[4:6], registerCount)
	return appendCRC(frame)
}

// parseReadResponse validates a response frame for unit and returns the two
// raw register values. All failures wrap ErrMalformed.
func parseReadResponse(unit byte, frame []byte) ([registerCount]uint16, error) {
	var regs [registerCount]uint16

	if len(frame) == exceptionLen && frame[1] == fnReadInputRegisters|0x80 {
		if !checkCRC(frame) {
			return regs, fmt.Errorf("%w: bad CRC on exception frame", ErrMalformed)
		}
		return regs, fmt.Errorf("%w: device exception code %#02x", ErrMalformed, frame[2])
	}
	if len(frame) != responseLen {
		return regs, fmt.Errorf("%w: length %d, want %d", ErrMalformed, len(frame), responseLen)
	}
	if !checkCRC(frame) {
		got := binary.LittleEndian.Uint16(frame[len(frame)-2:])
		return regs, fmt.Errorf("%w: CRC mismatch (got %#04x)", ErrMalformed, got)
	}
	if frame[0] != unit {
		return regs, fmt.Errorf("%w: address %d, want %d", ErrMalformed, frame[0], unit)
	}
	if frame[1] != fnReadInputRegisters {
		return regs, fmt.Errorf("%w: function %#02x, want %#02x", ErrMalformed, frame[1], fnReadInputRegisters)
	}
	if frame[2] != 2*registerCount {
		return regs, fmt.Errorf("%w: byte count %d, want %d", ErrMalformed, frame[2], 2*registerCount)
	}

	for i := 0; i < registerCount; i++ {
		regs[i] = binary.BigEndian.Uint16(frame[3+2*i : 5+2*i])
	}
	return regs, nil
}

func checkCRC(frame []byte) bool {
	body := frame[:len(frame)-2]
	want := binary.LittleEndian.Uint16(frame[len(frame)-2:])
	return crc16(body) == want
}

// decodeReading converts the raw register values into engineering units.
// The sensor reports both registers as signed fixed-point, scaled by 10
// (so 0x0144 = 32.4). Pure: identical bytes decode identically regardless
// of when the poll ran.
func decodeReading(regs [registerCount]uint16, now time.Time) Reading {
	return Reading{
		Temperature: float64(int16(regs[0])) / 10,
		Humidity:    float64(int16(regs[1])) / 10,
		Timestamp:   now,
	}
}
