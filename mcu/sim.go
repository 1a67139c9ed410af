package mcu

import (
	"encoding/binary"
	"log/slog"
	"sync"
)

var _ Registers = &Sim{}

const (
	simFlashKB = 16
	simRAMKB   = 2
)

// Sim is a CH32V003 seen from the debug console: flash, SRAM, the device
// signature block and the clock and reset registers. Flash and SRAM start
// zeroed and can be loaded with Load.
type Sim struct {
	mu      sync.Mutex
	uid     [12]byte
	flash   []byte
	sram    []byte
	ctlr    uint32
	cfgr0   uint32
	rstsckr uint32
	onReset func()
	resets  int
}

type SimOpt func(*Sim)

func WithUniqueID(id [12]byte) SimOpt {
	return func(s *Sim) {
		s.uid = id
	}
}

// WithResetCause sets the flags reported after power-up.
func WithResetCause(f ResetFlag) SimOpt {
	return func(s *Sim) {
		s.rstsckr = uint32(f & resetMask)
	}
}

// WithResetHook registers what a system reset does on the host.
func WithResetHook(f func()) SimOpt {
	return func(s *Sim) {
		s.onReset = f
	}
}

func NewSim(opts ...SimOpt) *Sim {
	s := &Sim{
		uid:     [12]byte{0xCD, 0xAB, 0x34, 0x12, 0x89, 0x67, 0x45, 0x23, 0xBC, 0x9A, 0x78, 0x56},
		flash:   make([]byte, simFlashKB*1024),
		sram:    make([]byte, simRAMKB*1024),
		ctlr:    0x03005183, // HSI and PLL on and ready
		cfgr0:   0x0000000A, // PLL as system clock
		rstsckr: uint32(ResetPowerOn | ResetPin),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load copies data into flash or SRAM at addr. Bytes outside both regions
// are dropped.
func (s *Sim) Load(addr uint32, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range data {
		a := addr + uint32(i)
		if mem, off, ok := s.region(a); ok {
			mem[off] = b
		}
	}
}

func (s *Sim) region(addr uint32) ([]byte, uint32, bool) {
	switch {
	case addr >= FlashBase && addr < FlashBase+uint32(len(s.flash)):
		return s.flash, addr - FlashBase, true
	case addr >= SRAMBase && addr < SRAMBase+uint32(len(s.sram)):
		return s.sram, addr - SRAMBase, true
	}
	return nil, 0, false
}

func (s *Sim) UniqueID() [12]byte {
	return s.uid
}

func (s *Sim) FlashSizeKB() uint16 {
	return uint16(len(s.flash) / 1024)
}

func (s *Sim) RAMSizeKB() uint16 {
	return uint16(len(s.sram) / 1024)
}

func (s *Sim) ReadWord(addr uint32) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr%4 != 0 {
		return 0, &FaultError{Addr: addr}
	}
	if mem, off, ok := s.region(addr); ok {
		return binary.LittleEndian.Uint32(mem[off : off+4]), nil
	}
	switch {
	case addr == FlashSizeReg:
		return uint32(s.FlashSizeKB()), nil
	case addr >= UniqueIDBase && addr < UniqueIDBase+12:
		off := addr - UniqueIDBase
		return binary.LittleEndian.Uint32(s.uid[off : off+4]), nil
	case addr == RCCCtlr:
		return s.ctlr, nil
	case addr == RCCCfgr0:
		return s.cfgr0, nil
	case addr == RCCRstsckr:
		return s.rstsckr, nil
	}
	return 0, &FaultError{Addr: addr}
}

func (s *Sim) Clocks() (ctlr, cfgr0 uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctlr, s.cfgr0
}

func (s *Sim) ResetFlags() ResetFlag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ResetFlag(s.rstsckr) & resetMask
}

// ClearResetFlags writes RMVF, which clears every cause flag.
func (s *Sim) ClearResetFlags() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rstsckr &^= uint32(resetMask)
}

// SystemReset behaves like a software reset: the cause flags then read
// SFTRSTF and the reset hook runs.
func (s *Sim) SystemReset() {
	s.mu.Lock()
	s.resets++
	s.rstsckr = uint32(ResetSoftware)
	hook := s.onReset
	s.mu.Unlock()
	slog.Debug("system reset requested")
	if hook != nil {
		hook()
	}
}

// Resets counts SystemReset calls.
func (s *Sim) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}
