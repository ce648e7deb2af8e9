package hardware

import "fmt"

// Committer flushes a shadow snapshot to the device without visible
// glitches. The configuration block (selector register through the last
// counter byte) always lands before the enable byte: output pins must
// never toggle on stale duty or timing values.
type Committer struct {
	bus RegisterBus
}

func NewCommitter(bus RegisterBus) *Committer {
	return &Committer{bus: bus}
}

// CommitAll performs the two-step flush. On error the device state is
// unknown; the caller retries the whole commit, never resumes mid-sequence.
func (c *Committer) CommitAll(shadow ShadowRegisters) error {
	if err := c.bus.WriteBlock(RegSel|CtnRWFlag, shadow[RegSel:RegMax]); err != nil {
		return fmt.Errorf("config block write failed: %w", err)
	}

	if err := c.bus.WriteByte(RegLedOn, shadow[RegLedOn]); err != nil {
		return fmt.Errorf("enable byte write failed: %w", err)
	}

	return nil
}

// Reset issues the chip's self-reset.
func (c *Committer) Reset() error {
	if err := c.bus.WriteByte(RegSReset, SResetBit); err != nil {
		return fmt.Errorf("chip reset failed: %w", err)
	}
	return nil
}

// ReadAll reads the full register file back into the shadow, used once at
// bring-up so merges start from the chip's post-reset defaults.
func (c *Committer) ReadAll(shadow *ShadowRegisters) error {
	if err := c.bus.ReadBlock(RegSReset|CtnRWFlag, shadow[:]); err != nil {
		return fmt.Errorf("register readback failed: %w", err)
	}
	return nil
}

// WriteSelector pushes the selector register alone. The IMAX field takes
// effect immediately, outside the two-step commit.
func (c *Committer) WriteSelector(shadow ShadowRegisters) error {
	if err := c.bus.WriteByte(RegSel, shadow[RegSel]); err != nil {
		return fmt.Errorf("selector write failed: %w", err)
	}
	return nil
}
