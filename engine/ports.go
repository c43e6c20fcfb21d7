package engine

import (
	"fmt"
	"log/slog"
	"strings"
)

// PortHandler contains details of a specific I/O port we implement.
//
// While we mostly need a "number to handler", mapping having a name
// is useful for the logs we produce.
type PortHandler struct {
	// Desc contains the human-readable description of the port.
	Desc string

	// In is invoked when the port is read, it may be nil.
	In func(e *Engine) uint8

	// Out is invoked when the port is written, it may be nil.
	Out func(e *Engine, val uint8)
}

// The ports we implement.
const (
	PortStatus       = 0x01
	PortQuit         = 0x02
	PortSnapshot     = 0x03
	PortSectorLow    = 0x04
	PortSectorHigh   = 0x05
	PortDiskData     = 0x06
	PortDiskCommit   = 0x07
	PortClockMinLow  = 0x08
	PortClockMinHigh = 0x09
	PortClockDayLow  = 0x0A
	PortClockDayHigh = 0x0B
	PortSnapshotName = 0x0C
	PortTrap         = 0x0F
)

// DefaultPorts returns the table of ports every engine starts with.
func DefaultPorts() map[uint8]PortHandler {
	p := make(map[uint8]PortHandler)

	p[PortStatus] = PortHandler{
		Desc: "STATUS",
		Out:  PortOutStatus,
	}
	p[PortQuit] = PortHandler{
		Desc: "QUIT",
		Out:  PortOutQuit,
	}
	p[PortSnapshot] = PortHandler{
		Desc: "SNAPSHOT",
		In:   PortInSnapshot,
		Out:  PortOutSnapshot,
	}
	p[PortSnapshotName] = PortHandler{
		Desc: "SNAPSHOT_NAME",
		Out:  PortOutSnapshotName,
	}
	p[PortSectorLow] = PortHandler{
		Desc: "SECTOR_LO",
		Out:  PortOutSectorLow,
	}
	p[PortSectorHigh] = PortHandler{
		Desc: "SECTOR_HI",
		Out:  PortOutSectorHigh,
	}
	p[PortDiskData] = PortHandler{
		Desc: "DISK_DATA",
		In:   PortInDiskData,
		Out:  PortOutDiskData,
	}
	p[PortDiskCommit] = PortHandler{
		Desc: "DISK_COMMIT",
		In:   PortInDiskStatus,
		Out:  PortOutDiskCommit,
	}
	p[PortClockMinLow] = PortHandler{
		Desc: "CLOCK_MIN_LO",
		In:   PortInClockMinLow,
	}
	p[PortClockMinHigh] = PortHandler{
		Desc: "CLOCK_MIN_HI",
		In:   PortInClockMinHigh,
	}
	p[PortClockDayLow] = PortHandler{
		Desc: "CLOCK_DAY_LO",
		In:   PortInClockDayLow,
	}
	p[PortClockDayHigh] = PortHandler{
		Desc: "CLOCK_DAY_HI",
		In:   PortInClockDayHigh,
	}
	p[PortTrap] = PortHandler{
		Desc: "TRAP",
		Out:  PortOutTrap,
	}
	return p
}

// In is called to handle the I/O reading of a Z80 port.
//
// This is called by our embedded Z80 emulator.
func (e *Engine) In(addr uint8) uint8 {
	e.count(func(s *Stats) { s.PortIn++ })

	handler, ok := e.Ports[addr]
	if !ok || handler.In == nil {
		e.Logger.Debug("I/O IN from unknown port",
			slog.Int("port", int(addr)))
		return 0
	}

	e.Logger.Debug("I/O IN",
		slog.String("name", handler.Desc),
		slog.String("port", fmt.Sprintf("0x%02X", addr)))
	return handler.In(e)
}

// Out is called to handle the I/O writing to a Z80 port.
//
// This is called by our embedded Z80 emulator.
func (e *Engine) Out(addr uint8, val uint8) {
	e.count(func(s *Stats) { s.PortOut++ })

	handler, ok := e.Ports[addr]
	if !ok || handler.Out == nil {
		e.Logger.Debug("I/O OUT to unknown port",
			slog.Int("port", int(addr)),
			slog.Int("value", int(val)))
		return
	}

	e.Logger.Debug("I/O OUT",
		slog.String("name", handler.Desc),
		slog.String("port", fmt.Sprintf("0x%02X", addr)),
		slog.Int("value", int(val)))
	handler.Out(e, val)
}

// PortOutStatus appends a character to the status line, a newline
// publishes it.
func PortOutStatus(e *Engine, val uint8) {
	if val == '\n' {
		text := string(e.statusBuf)
		e.statusBuf = e.statusBuf[:0]
		e.publish(text)
		return
	}
	e.statusBuf = append(e.statusBuf, val)
}

// PortOutQuit ends the run cooperatively.
//
// Any pending status text is used as the reason.
func PortOutQuit(e *Engine, val uint8) {
	reason := strings.TrimSpace(string(e.statusBuf))
	e.statusBuf = e.statusBuf[:0]
	if reason == "" {
		reason = "quit"
	}
	e.end(&QuitSignal{Reason: reason})
}

// PortOutTrap ends the run with a fault.
func PortOutTrap(e *Engine, val uint8) {
	e.end(fmt.Errorf("%w: code 0x%02X at PC 0x%04X", ErrTrap, val, e.CPU.PC))
}

// PortOutSnapshot saves a snapshot of the running image, which will
// resume from the instruction after the one which wrote to this port.
func PortOutSnapshot(e *Engine, val uint8) {
	e.Memory.SetContext(e.registers())
	e.snapshotOK = e.Store.SaveSnapshot()
	e.count(func(s *Stats) { s.Snapshots++ })
}

// PortInSnapshot returns 1 if the last snapshot succeeded.
func PortInSnapshot(e *Engine) uint8 {
	if e.snapshotOK {
		return 1
	}
	return 0
}

// PortOutSnapshotName appends a character to the name of the next
// snapshot, a NUL renames the snapshot target.
func PortOutSnapshotName(e *Engine, val uint8) {
	if val != 0x00 {
		e.nameBuf = append(e.nameBuf, val)
		return
	}

	name := strings.TrimSpace(string(e.nameBuf))
	e.nameBuf = e.nameBuf[:0]
	if name != "" {
		e.Store.Rename(name)
	}
}

// PortOutSectorLow sets the low byte of the selected sector.
func PortOutSectorLow(e *Engine, val uint8) {
	e.sector = (e.sector & 0xFF00) | int(val)
	e.sectorPos = 0
	e.sectorBuf = nil
}

// PortOutSectorHigh sets the high byte of the selected sector.
func PortOutSectorHigh(e *Engine, val uint8) {
	e.sector = (e.sector & 0x00FF) | int(val)<<8
	e.sectorPos = 0
	e.sectorBuf = nil
}

// PortInDiskData returns the next byte of the selected sector.
func PortInDiskData(e *Engine) uint8 {
	if e.sectorBuf == nil {
		if e.Drive == nil {
			e.diskOK = false
			return 0
		}
		data, err := e.Drive.Read(e.sector)
		if err != nil {
			e.Logger.Debug("disk read failed",
				slog.Int("sector", e.sector),
				slog.String("error", err.Error()))
			e.diskOK = false
			return 0
		}
		e.count(func(s *Stats) { s.SectorReads++ })
		e.sectorBuf = data
		e.sectorPos = 0
		e.diskOK = true
	}

	if e.sectorPos >= len(e.sectorBuf) {
		return 0
	}
	val := e.sectorBuf[e.sectorPos]
	e.sectorPos++
	return val
}

// PortOutDiskData stores the next byte of the selected sector.
func PortOutDiskData(e *Engine, val uint8) {
	if e.sectorBuf == nil {
		e.sectorBuf = make([]byte, 0, 256)
		e.sectorPos = 0
	}
	if e.sectorPos < len(e.sectorBuf) {
		e.sectorBuf[e.sectorPos] = val
	} else {
		e.sectorBuf = append(e.sectorBuf, val)
	}
	e.sectorPos++
}

// PortOutDiskCommit writes the bytes stored so far to the selected sector.
func PortOutDiskCommit(e *Engine, val uint8) {
	defer func() {
		e.sectorBuf = nil
		e.sectorPos = 0
	}()

	if e.Drive == nil {
		e.diskOK = false
		return
	}

	err := e.Drive.Write(e.sector, e.sectorBuf)
	if err != nil {
		e.Logger.Debug("disk write failed",
			slog.Int("sector", e.sector),
			slog.String("error", err.Error()))
		e.diskOK = false
		return
	}
	e.count(func(s *Stats) { s.SectorWrites++ })
	e.diskOK = true
}

// PortInDiskStatus returns 0 if the last disk operation succeeded.
func PortInDiskStatus(e *Engine) uint8 {
	if e.diskOK {
		return 0
	}
	return 1
}

// minuteOfDay returns the minute of the day, of the latched time.
func (e *Engine) minuteOfDay() int {
	return e.latched.Hour()*60 + e.latched.Minute()
}

// PortInClockMinLow latches the time, and returns the low byte of the
// minute of the day.
func PortInClockMinLow(e *Engine) uint8 {
	e.latched = e.Clock.Now()
	return uint8(e.minuteOfDay() & 0xFF)
}

// PortInClockMinHigh returns the high byte of the minute of the day.
func PortInClockMinHigh(e *Engine) uint8 {
	return uint8(e.minuteOfDay() >> 8)
}

// PortInClockDayLow returns the low byte of the zero-based day of the year.
func PortInClockDayLow(e *Engine) uint8 {
	return uint8((e.latched.YearDay() - 1) & 0xFF)
}

// PortInClockDayHigh returns the high byte of the zero-based day of the year.
func PortInClockDayHigh(e *Engine) uint8 {
	return uint8((e.latched.YearDay() - 1) >> 8)
}
