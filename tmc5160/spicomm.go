//go:build tinygo

package tmc5160

import (
	"errors"
	"machine"
	"time"
)

// SPIComm implements RegisterComm over SPI mode 3 with one chip-select
// pin per device address.
type SPIComm struct {
	spi    machine.SPI
	csPins map[uint8]machine.Pin
}

func NewSPIComm(spi machine.SPI, csPins map[uint8]machine.Pin) *SPIComm {
	return &SPIComm{spi: spi, csPins: csPins}
}

func (c *SPIComm) Setup() error {
	for _, cs := range c.csPins {
		cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
		cs.High()
	}
	return c.spi.Configure(machine.SPIConfig{
		LSBFirst: false,
		Mode:     3,
	})
}

// WriteRegister sends one 40-bit write frame.
func (c *SPIComm) WriteRegister(register uint8, value uint32, address uint8) error {
	cs, ok := c.csPins[address]
	if !ok {
		return errors.New("tmc5160: no chip select for address")
	}
	cs.Low()
	_, err := c.transfer40(register|writeAccess, value)
	cs.High()
	return err
}

// ReadRegister uses the chip's pipelined read: the first frame latches
// the address, the second returns the data.
func (c *SPIComm) ReadRegister(register uint8, address uint8) (uint32, error) {
	cs, ok := c.csPins[address]
	if !ok {
		return 0, errors.New("tmc5160: no chip select for address")
	}
	cs.Low()
	if _, err := c.transfer40(register, 0); err != nil {
		cs.High()
		return 0, err
	}
	cs.High()
	time.Sleep(176 * time.Nanosecond) // t_CSH minimum between frames
	cs.Low()
	value, err := c.transfer40(register, 0)
	cs.High()
	return value, err
}

// transfer40 clocks one address byte plus 32 data bits through the
// bus, returning the 32 data bits that came back.
func (c *SPIComm) transfer40(register uint8, txData uint32) (uint32, error) {
	tx := [5]byte{
		register,
		byte(txData >> 24),
		byte(txData >> 16),
		byte(txData >> 8),
		byte(txData),
	}
	var rx [5]byte
	if err := c.spi.Tx(tx[:], rx[:]); err != nil {
		return 0, err
	}
	return uint32(rx[1])<<24 | uint32(rx[2])<<16 | uint32(rx[3])<<8 | uint32(rx[4]), nil
}
