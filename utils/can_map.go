package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// SignalDef describes one physical signal packed into a CAN frame.
// Only little-endian packing is supported.
type SignalDef struct {
	Name      string
	StartBit  int
	BitLength int
	Signed    bool
	Factor    float64
	Offset    float64
	Min       float64
	Max       float64
	Default   float64
	Unit      string
	Comment   string
}

// FrameDef describes one CAN frame and the signals it carries.
type FrameDef struct {
	ID        uint32
	Name      string
	DLC       int
	Direction string // "tx" or "rx" from the controller's point of view
	CycleMS   int
	Signals   []SignalDef
}

// CANMap indexes frame definitions by ID and by name.
type CANMap struct {
	ByID   map[uint32]*FrameDef
	ByName map[string]*FrameDef
}

func (m *CANMap) FrameNames() []string {
	out := make([]string, 0, len(m.ByName))
	for k := range m.ByName {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (m *CANMap) FrameByName(name string) (*FrameDef, error) {
	fd, ok := m.ByName[name]
	if !ok {
		return nil, fmt.Errorf("unknown frame %q (available: %v)", name, m.FrameNames())
	}
	return fd, nil
}

func (m *CANMap) FrameByID(id uint32) (*FrameDef, error) {
	fd, ok := m.ByID[id]
	if !ok {
		return nil, fmt.Errorf("unknown frame id 0x%X", id)
	}
	return fd, nil
}

var canMapColumns = []string{
	"direction", "frame_id", "frame_name", "cycle_ms", "dlc",
	"signal_name", "start_bit", "bit_length", "endianness",
	"signed", "factor", "offset", "min", "max", "default", "unit", "comment",
}

// LoadCANMap reads a frame/signal table from a CSV file, one row per signal.
func LoadCANMap(csvPath string) (*CANMap, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, err
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, k := range canMapColumns {
		if _, ok := idx[k]; !ok {
			return nil, fmt.Errorf("can map missing required column %q", k)
		}
	}

	m := &CANMap{
		ByID:   map[uint32]*FrameDef{},
		ByName: map[string]*FrameDef{},
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		frameID, err := parseHexOrDecUint32(rec[idx["frame_id"]])
		if err != nil {
			return nil, fmt.Errorf("invalid frame_id %q: %w", rec[idx["frame_id"]], err)
		}
		frameName := strings.TrimSpace(rec[idx["frame_name"]])
		signalName := strings.TrimSpace(rec[idx["signal_name"]])

		rowErr := func(col string, err error) error {
			return fmt.Errorf("frame %s signal %s: invalid %s %q: %w", frameName, signalName, col, rec[idx[col]], err)
		}
		parseIntCell := func(col string) (int, error) {
			v, err := strconv.Atoi(strings.TrimSpace(rec[idx[col]]))
			if err != nil {
				return 0, rowErr(col, err)
			}
			return v, nil
		}
		parseFloatCell := func(col string) (float64, error) {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx[col]]), 64)
			if err != nil {
				return 0, rowErr(col, err)
			}
			return v, nil
		}

		dlc, err := parseIntCell("dlc")
		if err != nil {
			return nil, err
		}
		cycleMS, err := parseIntCell("cycle_ms")
		if err != nil {
			return nil, err
		}
		startBit, err := parseIntCell("start_bit")
		if err != nil {
			return nil, err
		}
		bitLength, err := parseIntCell("bit_length")
		if err != nil {
			return nil, err
		}
		signed, err := parseBool(rec[idx["signed"]])
		if err != nil {
			return nil, rowErr("signed", err)
		}

		sig := SignalDef{
			Name:      signalName,
			StartBit:  startBit,
			BitLength: bitLength,
			Signed:    signed,
			Unit:      strings.TrimSpace(rec[idx["unit"]]),
			Comment:   strings.TrimSpace(rec[idx["comment"]]),
		}
		for _, fc := range []struct {
			col string
			dst *float64
		}{
			{"factor", &sig.Factor},
			{"offset", &sig.Offset},
			{"min", &sig.Min},
			{"max", &sig.Max},
			{"default", &sig.Default},
		} {
			if *fc.dst, err = parseFloatCell(fc.col); err != nil {
				return nil, err
			}
		}

		if e := strings.TrimSpace(rec[idx["endianness"]]); e != "" && e != "little" {
			return nil, fmt.Errorf("frame %s signal %s: unsupported endianness %q", frameName, sig.Name, e)
		}
		if sig.BitLength <= 0 || sig.BitLength > 64 {
			return nil, fmt.Errorf("frame %s signal %s: invalid bit_length %d", frameName, sig.Name, sig.BitLength)
		}
		if dlc <= 0 || dlc > 8 {
			return nil, fmt.Errorf("frame %s (0x%X): invalid dlc %d", frameName, frameID, dlc)
		}
		if sig.StartBit < 0 || sig.StartBit+sig.BitLength > 8*dlc {
			return nil, fmt.Errorf("frame %s signal %s: bits [%d,%d) exceed %d-byte payload",
				frameName, sig.Name, sig.StartBit, sig.StartBit+sig.BitLength, dlc)
		}

		fd, ok := m.ByID[frameID]
		if !ok {
			fd = &FrameDef{
				ID:        frameID,
				Name:      frameName,
				DLC:       dlc,
				Direction: strings.TrimSpace(rec[idx["direction"]]),
				CycleMS:   cycleMS,
			}
			m.ByID[frameID] = fd
			m.ByName[frameName] = fd
		}
		if fd.DLC != dlc {
			return nil, fmt.Errorf("frame %s (0x%X) has inconsistent DLC (%d vs %d)", frameName, frameID, fd.DLC, dlc)
		}
		fd.Signals = append(fd.Signals, sig)
	}

	for _, fd := range m.ByID {
		sort.Slice(fd.Signals, func(i, j int) bool { return fd.Signals[i].StartBit < fd.Signals[j].StartBit })
	}
	return m, nil
}

func parseHexOrDecUint32(s string) (uint32, error) {
	ss := strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(ss, "0x") || strings.HasPrefix(ss, "0X") {
		base = 16
		ss = ss[2:]
	}
	u, err := strconv.ParseUint(ss, base, 32)
	if err != nil {
		return 0, err
	}
	return uint32(u), nil
}

func parseBool(s string) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no", "":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean")
}
