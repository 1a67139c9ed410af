package command

import (
	"context"
	"strings"
	"time"

	"github.com/mklimuk/diagcon/cmdline"
	"github.com/mklimuk/diagcon/mcu"
)

// descriptions start at this column in the help listing
const commentColumn = 12

func help(_ context.Context, c *cmdline.Console) (int, error) {
	c.Printf("Help - command list\r\n")
	c.Printf("Command     Comment\r\n")
	for _, cmd := range c.Registry().Commands() {
		pad := max(commentColumn-len(cmd.Name), 0)
		c.Printf("%s%s%s\r\n", cmd.Name, strings.Repeat(" ", pad), cmd.Description)
	}
	c.Printf("\n")
	return 0, nil
}

func add(_ context.Context, c *cmdline.Console) (int, error) {
	c.Printf("add..  A: %s  B: %s\n", c.Arg(1), c.Arg(2))
	a, err := cmdline.ParseInt(c.Arg(1))
	if err != nil {
		c.Printf("Invalid number %s\n", c.Arg(1))
		return 0, err
	}
	b, err := cmdline.ParseInt(c.Arg(2))
	if err != nil {
		c.Printf("Invalid number %s\n", c.Arg(2))
		return 0, err
	}
	sum := a + b
	c.Printf("returning %d\n\n", sum)
	return sum, nil
}

type system struct {
	mcu        mcu.Registers
	sleep      func(ctx context.Context, d time.Duration) error
	resetDelay time.Duration
}

func (s *system) id(_ context.Context, c *cmdline.Console) (int, error) {
	uid := s.mcu.UniqueID()
	c.Printf("Unique ID: 0x")
	for i := len(uid) - 1; i >= 0; i-- {
		c.Printf("%02X", uid[i])
	}
	c.Printf("\n")
	return 0, nil
}

func (s *system) info(_ context.Context, c *cmdline.Console) (int, error) {
	c.Printf("Processor FLASH: %dK bytes\n", s.mcu.FlashSizeKB())
	c.Printf("Processor RAM: %dK bytes\n", s.mcu.RAMSizeKB())
	return 0, nil
}

func (s *system) read(_ context.Context, c *cmdline.Console) (int, error) {
	addr, err := cmdline.ParseHex(c.Arg(1))
	if err != nil {
		c.Printf("Invalid hex address\n")
		return 1, err
	}
	value, err := s.mcu.ReadWord(addr)
	if err != nil {
		c.Printf("[%08X]: bus fault\n", addr)
		return 1, err
	}
	c.Printf("[%08X]: %08X\n", addr, value)
	return 0, nil
}

func (s *system) clocks(_ context.Context, c *cmdline.Console) (int, error) {
	ctlr, cfgr0 := s.mcu.Clocks()
	c.Printf("RCC->CTLR : %08X\n", ctlr)
	c.Printf("RCC->CFGR0: %08X\n", cfgr0)
	return 0, nil
}

func (s *system) reset(ctx context.Context, c *cmdline.Console) (int, error) {
	c.Printf("reset\n")
	// let the message drain before the chip goes down
	if err := s.sleep(ctx, s.resetDelay); err != nil {
		return 0, err
	}
	s.mcu.SystemReset()
	return 0, nil
}

func (s *system) resetCause(_ context.Context, c *cmdline.Console) (int, error) {
	c.Printf("Reset cause: ")
	names := s.mcu.ResetFlags().Names()
	if len(names) == 0 {
		c.Printf("none\n")
	}
	for _, name := range names {
		c.Printf("%s\n", name)
	}
	s.mcu.ClearResetFlags()
	return 0, nil
}
