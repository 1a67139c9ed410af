package sim

import (
	"math"
	"sync"
	"time"
)

// Probe acknowledges its address and nothing else of interest; reads
// return 0xFF like an idle line.
type Probe struct{}

func (Probe) Start(bool) bool { return true }
func (Probe) Write(byte) bool { return true }
func (Probe) Read(bool) byte  { return 0xFF }
func (Probe) Stop()           {}

// registerFile is a byte array behind an auto-incrementing pointer. The
// first byte of a write transaction positions the pointer; reads continue
// from wherever the pointer was left.
type registerFile struct {
	mem       []byte
	ptrBytes  int
	ptr       int
	ptrPhase  int
	onWrite   func(reg int, v byte)
	readStart func()
}

func (r *registerFile) Start(read bool) bool {
	if read {
		if r.readStart != nil {
			r.readStart()
		}
		return true
	}
	r.ptrPhase = 0
	return true
}

func (r *registerFile) Write(b byte) bool {
	if r.ptrPhase < r.ptrBytes {
		if r.ptrPhase == 0 {
			r.ptr = 0
		}
		r.ptr = (r.ptr<<8 | int(b)) % len(r.mem)
		r.ptrPhase++
		return true
	}
	r.mem[r.ptr] = b
	if r.onWrite != nil {
		r.onWrite(r.ptr, b)
	}
	r.ptr = (r.ptr + 1) % len(r.mem)
	return true
}

func (r *registerFile) Read(bool) byte {
	v := r.mem[r.ptr]
	r.ptr = (r.ptr + 1) % len(r.mem)
	return v
}

func (r *registerFile) Stop() {}

// EEPROM is a serial memory with a one or two byte word address, such as
// the 24C32 that sits next to a DS3231 on the common RTC boards.
type EEPROM struct {
	registerFile
}

func NewEEPROM(size, addressBytes int) *EEPROM {
	mem := make([]byte, size)
	for i := range mem {
		mem[i] = 0xFF
	}
	return &EEPROM{registerFile{mem: mem, ptrBytes: addressBytes}}
}

// Bytes returns a copy of the memory contents.
func (e *EEPROM) Bytes() []byte {
	out := make([]byte, len(e.mem))
	copy(out, e.mem)
	return out
}

// DS3231 register map.
const (
	DS3231Seconds   = 0x00
	DS3231Control   = 0x0E
	DS3231Status    = 0x0F
	DS3231TempMSB   = 0x11
	DS3231TempLSB   = 0x12
	ds3231Registers = 0x13

	ds3231Convert = 0x20
)

// DS3231 is a real-time clock with a built-in temperature sensor. Time
// registers follow the clock function; the temperature registers only
// change when a conversion is requested through the control register.
type DS3231 struct {
	registerFile

	mu          sync.Mutex
	now         func() time.Time
	temperature float64
	conversions int
}

func NewDS3231(now func() time.Time) *DS3231 {
	d := &DS3231{now: now}
	if d.now == nil {
		d.now = time.Now
	}
	d.registerFile = registerFile{mem: make([]byte, ds3231Registers), ptrBytes: 1}
	d.mem[DS3231Control] = 0x1C
	d.onWrite = d.written
	d.readStart = d.latchTime
	return d
}

// SetTemperature sets what the next conversion measures.
func (d *DS3231) SetTemperature(celsius float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.temperature = celsius
}

// Conversions counts the temperature conversions requested so far.
func (d *DS3231) Conversions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conversions
}

func (d *DS3231) written(reg int, v byte) {
	if reg != DS3231Control || v&ds3231Convert == 0 {
		return
	}
	d.mu.Lock()
	quarters := int16(math.Round(d.temperature * 4))
	d.conversions++
	d.mu.Unlock()
	raw := uint16(quarters << 6)
	d.mem[DS3231TempMSB] = byte(raw >> 8)
	d.mem[DS3231TempLSB] = byte(raw)
	d.mem[DS3231Control] = v &^ ds3231Convert
}

func (d *DS3231) latchTime() {
	t := d.now()
	d.mem[0] = bcd(t.Second())
	d.mem[1] = bcd(t.Minute())
	d.mem[2] = bcd(t.Hour())
	d.mem[3] = byte(t.Weekday()) + 1
	d.mem[4] = bcd(t.Day())
	month := bcd(int(t.Month()))
	if t.Year() >= 2100 {
		month |= 0x80
	}
	d.mem[5] = month
	d.mem[6] = bcd(t.Year() % 100)
}

func bcd(v int) byte {
	return byte(v/10<<4 | v%10)
}
