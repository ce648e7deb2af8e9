package hardware

import "led-service/internal/types"

// AN30259A register map
const (
	RegSReset byte = 0x00 // write 1 to self-reset
	RegLedOn  byte = 0x01 // bit i = channel i on, bit i+4 = channel i slope mode
	RegSel    byte = 0x02 // IMAX current-limit field in the top two bits

	RegLed1CC byte = 0x03 // per-channel current byte, one register per channel

	RegLed1Slp byte = 0x06 // per-channel SLPTT2 (high nibble) | SLPTT1 (low nibble)

	RegLed1Cnt1 byte = 0x09 // four counter bytes per channel, see RegCnt

	RegMax byte = 0x15
)

// Register field masks and flags
const (
	MaskImax  byte = 0xC0
	MaskDelay byte = 0xF0 // delay-start nibble in counter byte 2

	SResetBit    byte = 0x01
	LedOnBit     byte = 0x01
	SlopeModeBit byte = 0x10

	ImaxShift = 6

	// CtnRWFlag ORed into the register address selects the chip's
	// auto-increment mode for multi-byte transfers.
	CtnRWFlag byte = 0x80
)

// Encoding limits from the datasheet
const (
	DutyFieldMax  = 0x7F // duty-cycle setpoints are 7-bit
	TimeUnitMs    = 500  // SLPTT and delay-start count in 500 ms units
	MaxTimeUnits  = 15   // SLPTT fields are one nibble wide
	SlpttMaxMs    = 7500 // longest representable phase time
	SlopeStepMax  = 5    // dt1..dt4 upper bound, in 4 ms units
	MaxBrightness = 0xFF
)

// RegCC returns the current register of a channel.
func RegCC(ch types.Channel) byte {
	return RegLed1CC + byte(ch)
}

// RegSlp returns the sleep (SLPTT) register of a channel.
func RegSlp(ch types.Channel) byte {
	return RegLed1Slp + byte(ch)
}

// RegCnt returns the n-th counter register of a channel, n in 0..3:
//
//	0: duty-max (high nibble) | duty-mid (low nibble)
//	1: delay-start (high nibble) | duty-min (low nibble)
//	2: dt2 (high nibble) | dt1 (low nibble)
//	3: dt4 (high nibble) | dt3 (low nibble)
func RegCnt(ch types.Channel, n int) byte {
	return RegLed1Cnt1 + byte(ch)*4 + byte(n)
}
