//go:build tinygo

package tmc2209

import (
	"errors"
	"machine"
	"time"
)

var errTimeout = errors.New("tmc2209: uart timeout")

// UARTComm implements RegisterComm over the chip's single-wire UART.
type UARTComm struct {
	uart *machine.UART
	baud uint32
}

func NewUARTComm(uart *machine.UART, baud uint32) *UARTComm {
	if baud == 0 {
		baud = 115200
	}
	return &UARTComm{uart: uart, baud: baud}
}

func (c *UARTComm) Setup() error {
	if c.uart == nil {
		return ErrNoComm
	}
	return c.uart.Configure(machine.UARTConfig{BaudRate: c.baud})
}

// WriteRegister sends an 8-byte write datagram: sync, address,
// register with the write bit set, 32-bit value, CRC.
func (c *UARTComm) WriteRegister(register uint8, value uint32, address uint8) error {
	var buf [8]byte
	buf[0] = 0x05
	buf[1] = address
	buf[2] = register | 0x80
	buf[3] = byte(value >> 24)
	buf[4] = byte(value >> 16)
	buf[5] = byte(value >> 8)
	buf[6] = byte(value)
	buf[7] = datagramCRC(buf[:7])

	done := make(chan error, 1)
	go func() {
		_, err := c.uart.Write(buf[:])
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(100 * time.Millisecond):
		return errTimeout
	}
}

// ReadRegister sends a 4-byte read request and collects the chip's
// 8-byte reply, validating its CRC.
func (c *UARTComm) ReadRegister(register uint8, address uint8) (uint32, error) {
	var req [4]byte
	req[0] = 0x05
	req[1] = address
	req[2] = register & 0x7F
	req[3] = datagramCRC(req[:3])

	done := make(chan []byte, 1)
	go func() {
		c.uart.Write(req[:])
		reply := make([]byte, 8)
		c.uart.Read(reply)
		done <- reply
	}()

	select {
	case reply := <-done:
		if datagramCRC(reply[:7]) != reply[7] {
			return 0, errors.New("tmc2209: reply crc mismatch")
		}
		return uint32(reply[3])<<24 | uint32(reply[4])<<16 | uint32(reply[5])<<8 | uint32(reply[6]), nil
	case <-time.After(100 * time.Millisecond):
		return 0, errTimeout
	}
}
