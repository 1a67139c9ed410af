// Package mcu describes the processor registers the diagnostic commands
// report on. The console only reads them through Registers, so a host
// build can stand in for the chip.
package mcu

import (
	"errors"
	"fmt"
)

// Memory map of the CH32V003.
const (
	FlashBase    uint32 = 0x08000000
	SRAMBase     uint32 = 0x20000000
	FlashSizeReg uint32 = 0x1FFFF7E0
	UniqueIDBase uint32 = 0x1FFFF7E8
	RCCBase      uint32 = 0x40021000

	RCCCtlr    = RCCBase + 0x00
	RCCCfgr0   = RCCBase + 0x04
	RCCRstsckr = RCCBase + 0x24
)

var ErrBusFault = errors.New("bus fault")

// ResetFlag is the reset cause part of RCC_RSTSCKR.
type ResetFlag uint32

const (
	ResetPin                 ResetFlag = 1 << 26 // PINRSTF
	ResetPowerOn             ResetFlag = 1 << 27 // PORRSTF
	ResetSoftware            ResetFlag = 1 << 28 // SFTRSTF
	ResetIndependentWatchdog ResetFlag = 1 << 29 // IWDGRSTF
	ResetWindowWatchdog      ResetFlag = 1 << 30 // WWDGRSTF
	ResetLowPower            ResetFlag = 1 << 31 // LPWRRSTF

	resetMask = ResetPin | ResetPowerOn | ResetSoftware | ResetIndependentWatchdog | ResetWindowWatchdog | ResetLowPower
)

var resetNames = []struct {
	flag ResetFlag
	name string
}{
	{ResetLowPower, "LPWRRSTF"},
	{ResetWindowWatchdog, "WWDGRSTF"},
	{ResetIndependentWatchdog, "IWDGRSTF"},
	{ResetSoftware, "SFTRSTF"},
	{ResetPowerOn, "PORRSTF"},
	{ResetPin, "PINRSTF"},
}

// Names lists the set flags, highest bit first.
func (f ResetFlag) Names() []string {
	var names []string
	for _, n := range resetNames {
		if f&n.flag != 0 {
			names = append(names, n.name)
		}
	}
	return names
}

type Registers interface {
	// UniqueID is the 96-bit factory identifier, lowest address first.
	UniqueID() [12]byte
	FlashSizeKB() uint16
	RAMSizeKB() uint16
	// ReadWord reads the 32-bit word at addr. Addresses that are not
	// mapped or not aligned fail with ErrBusFault.
	ReadWord(addr uint32) (uint32, error)
	Clocks() (ctlr, cfgr0 uint32)
	ResetFlags() ResetFlag
	ClearResetFlags()
	SystemReset()
}

type FaultError struct {
	Addr uint32
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("bus fault at %08X", e.Addr)
}

func (e *FaultError) Unwrap() error {
	return ErrBusFault
}
