package hardware

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// EnableLine drives the controller's hardware enable pin on boards that
// wire one. Boards without the pin skip this entirely.
type EnableLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// RequestEnableLine claims the GPIO line and drives it high so the chip
// powers up before the first bus transaction.
func RequestEnableLine(chipName string, offset int) (*EnableLine, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO chip %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(offset,
		gpiocdev.AsOutput(1),
		gpiocdev.WithConsumer("led-service"))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("failed to request enable line %d on %s: %w", offset, chipName, err)
	}

	return &EnableLine{chip: chip, line: line}, nil
}

func (e *EnableLine) Set(on bool) error {
	val := 0
	if on {
		val = 1
	}
	return e.line.SetValue(val)
}

// Close drops the enable pin and releases the line.
func (e *EnableLine) Close() {
	e.Set(false)
	e.line.Close()
	e.chip.Close()
}
