package hardware

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// I2C_SLAVE ioctl from linux/i2c-dev.h
const i2cSlave = 0x0703

// RegisterBus is the byte-exact transport to the controller. Implementations
// are assumed reliable request/response; retry policy lives with the caller.
type RegisterBus interface {
	WriteByte(reg, value byte) error
	WriteBlock(reg byte, data []byte) error
	ReadBlock(reg byte, buf []byte) error
	Close() error
}

// I2CBus drives the controller through the Linux i2c-dev interface.
type I2CBus struct {
	fd   int
	addr byte
	path string
}

// OpenI2CBus opens the i2c-dev node and binds it to the chip address.
func OpenI2CBus(path string, addr byte) (*I2CBus, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c device %s: %w", path, err)
	}

	if err := unix.IoctlSetInt(fd, i2cSlave, int(addr)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to bind i2c address 0x%02x on %s: %w", addr, path, err)
	}

	return &I2CBus{fd: fd, addr: addr, path: path}, nil
}

func (b *I2CBus) WriteByte(reg, value byte) error {
	return b.write([]byte{reg, value})
}

func (b *I2CBus) WriteBlock(reg byte, data []byte) error {
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, reg)
	buf = append(buf, data...)
	return b.write(buf)
}

// ReadBlock fills buf with consecutive register values starting at reg.
func (b *I2CBus) ReadBlock(reg byte, buf []byte) error {
	if err := b.write([]byte{reg}); err != nil {
		return err
	}

	n, err := unix.Read(b.fd, buf)
	if err != nil {
		return fmt.Errorf("i2c read failed on %s: %w", b.path, err)
	}
	if n != len(buf) {
		return fmt.Errorf("short i2c read on %s: %d of %d bytes", b.path, n, len(buf))
	}
	return nil
}

func (b *I2CBus) write(buf []byte) error {
	n, err := unix.Write(b.fd, buf)
	if err != nil {
		return fmt.Errorf("i2c write failed on %s: %w", b.path, err)
	}
	if n != len(buf) {
		return fmt.Errorf("short i2c write on %s: %d of %d bytes", b.path, n, len(buf))
	}
	return nil
}

func (b *I2CBus) Close() error {
	return unix.Close(b.fd)
}
