package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/rivulet-hv/rivulet/internal/riscv"
	"github.com/rivulet-hv/rivulet/internal/sbi"
	"github.com/rivulet-hv/rivulet/internal/vcpu"
)

// runHarts claims every configured hart and runs it to completion. Each
// hart gets its own OS-locked goroutine; the scheduler pinning the
// thread to a physical CPU for the duration of each run is what the
// world switch relies on.
func runHarts(cfg Config, table *vcpu.VmCpus) error {
	console, restore, err := newConsole()
	if err != nil {
		return err
	}
	defer restore()

	var group errgroup.Group
	for id := uint64(0); id < cfg.CPUs; id++ {
		group.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			running, err := table.TakeVcpu(id)
			if err != nil {
				return fmt.Errorf("take vcpu %d: %w", id, err)
			}
			defer running.Release()

			return runLoop(running, console)
		})
	}
	return group.Wait()
}

// runLoop is the dispatcher for one hart: run until exit, act on the
// exit, re-enter.
func runLoop(running *vcpu.RunningVmCpu, console *console) error {
	v := running.VmCpu()

	for {
		switch exit := v.RunToExit().(type) {
		case vcpu.ExitEcall:
			if exit.Message == nil {
				v.SetEcallResult(sbi.Fail(sbi.ErrNotSupported))
				continue
			}
			result, halt := handleEcall(*exit.Message, console)
			if halt {
				slog.Info("guest requested shutdown", "vcpu", running.ID())
				return nil
			}
			v.SetEcallResult(result)

		case vcpu.ExitPageFault:
			// The guest memory manager is what would resolve this;
			// without one a fault is fatal to the hart.
			return fmt.Errorf("vcpu %d: unhandled page fault at %s", running.ID(), exit.Addr)

		case vcpu.ExitOther:
			trap := riscv.TrapFromScause(exit.Trap.Scause)
			if trap.Interrupt {
				// Host interrupt kicked us out of the guest; re-enter.
				continue
			}
			return fmt.Errorf("vcpu %d: unhandled guest trap %v (stval=0x%x)",
				running.ID(), trap, exit.Trap.Stval)
		}
	}
}

func handleEcall(msg sbi.Message, console *console) (result sbi.Return, halt bool) {
	switch msg.Extension {
	case sbi.ExtBase:
		return handleBase(msg), false

	case sbi.ExtLegacyPutchar:
		console.putchar(byte(msg.Args[0]))
		return sbi.Succeed(0), false

	case sbi.ExtLegacyGetchar:
		return sbi.Succeed(console.getchar()), false

	case sbi.ExtIPI, sbi.ExtRFence:
		// Nothing to forward yet; succeeding keeps single-hart guests
		// making progress.
		return sbi.Succeed(0), false

	case sbi.ExtSRST:
		return sbi.Return{}, true

	default:
		return sbi.Fail(sbi.ErrNotSupported), false
	}
}

func handleBase(msg sbi.Message) sbi.Return {
	switch msg.Function {
	case sbi.BaseGetSpecVersion:
		return sbi.Succeed(0x0100_0000) // SBI 1.0
	case sbi.BaseGetImplID, sbi.BaseGetImplVersion,
		sbi.BaseGetMvendorID, sbi.BaseGetMarchID, sbi.BaseGetMimplID:
		return sbi.Succeed(0)
	case sbi.BaseProbeExtension:
		switch msg.Args[0] {
		case sbi.ExtBase, sbi.ExtLegacyPutchar, sbi.ExtLegacyGetchar,
			sbi.ExtIPI, sbi.ExtRFence, sbi.ExtSRST:
			return sbi.Succeed(1)
		default:
			return sbi.Succeed(0)
		}
	default:
		return sbi.Fail(sbi.ErrNotSupported)
	}
}

// console bridges the guest's legacy SBI console to the host terminal.
type console struct {
	in  *bufio.Reader
	out *os.File
}

// newConsole sets up the console, switching the controlling terminal to
// raw mode so guest line discipline wins. The returned restore func
// undoes the terminal state.
func newConsole() (*console, func(), error) {
	c := &console{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return c, func() {}, nil
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, nil, fmt.Errorf("raw console: %w", err)
	}
	return c, func() { _ = term.Restore(fd, oldState) }, nil
}

func (c *console) putchar(b byte) {
	_, _ = c.out.Write([]byte{b})
}

// getchar returns the next input byte, or all-ones when none is pending,
// matching the legacy SBI contract.
func (c *console) getchar() uint64 {
	if c.in.Buffered() == 0 {
		return ^uint64(0)
	}
	b, err := c.in.ReadByte()
	if err != nil {
		return ^uint64(0)
	}
	return uint64(b)
}
