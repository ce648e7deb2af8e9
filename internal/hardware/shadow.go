package hardware

// ShadowRegisters mirrors the device's register file in memory. It holds
// the last intended configuration, which may be ahead of what was last
// committed to the chip. All mutation goes through MergeField so that
// unrelated bits sharing a byte are never clobbered.
type ShadowRegisters [RegMax]byte

// MergeField clears the mask bits at addr and ORs in value. The value
// must already be shifted into field position and fit the mask; callers
// clamp before packing.
func (s *ShadowRegisters) MergeField(addr, mask, value byte) {
	s[addr] = s[addr]&^mask | value
}

// Snapshot returns a copy for transport, decoupled from further merges.
func (s *ShadowRegisters) Snapshot() ShadowRegisters {
	return *s
}
