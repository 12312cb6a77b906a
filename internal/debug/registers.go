package debug

import (
	"strings"

	"github.com/intuitionamiga/SpectrumEngine/internal/z80"
)

// RegisterValue returns the named Z80 register. Names are case-insensitive;
// the alternate set uses a trailing apostrophe (AF', HL').
func RegisterValue(cpu *z80.CPU, name string) (uint64, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "A":
		return uint64(cpu.A), true
	case "F":
		return uint64(cpu.F), true
	case "B":
		return uint64(cpu.B), true
	case "C":
		return uint64(cpu.C), true
	case "D":
		return uint64(cpu.D), true
	case "E":
		return uint64(cpu.E), true
	case "H":
		return uint64(cpu.H), true
	case "L":
		return uint64(cpu.L), true
	case "I":
		return uint64(cpu.I), true
	case "R":
		return uint64(cpu.R), true
	case "AF":
		return uint64(cpu.AF()), true
	case "BC":
		return uint64(cpu.BC()), true
	case "DE":
		return uint64(cpu.DE()), true
	case "HL":
		return uint64(cpu.HL()), true
	case "AF'":
		return uint64(cpu.AF2()), true
	case "BC'":
		return uint64(cpu.BC2()), true
	case "DE'":
		return uint64(cpu.DE2()), true
	case "HL'":
		return uint64(cpu.HL2()), true
	case "IX":
		return uint64(cpu.IX), true
	case "IY":
		return uint64(cpu.IY), true
	case "SP":
		return uint64(cpu.SP), true
	case "PC":
		return uint64(cpu.PC), true
	case "WZ", "MEMPTR":
		return uint64(cpu.WZ), true
	case "IM":
		return uint64(cpu.IM), true
	case "IFF1":
		return boolValue(cpu.IFF1), true
	case "IFF2":
		return boolValue(cpu.IFF2), true
	case "TACTS":
		return cpu.Tacts, true
	}
	return 0, false
}

// FlagMask maps a flag name (S, Z, H, PV, P, V, N, C) to its bit in F.
func FlagMask(name string) (byte, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "S":
		return z80.FlagS, true
	case "Z":
		return z80.FlagZ, true
	case "H":
		return z80.FlagH, true
	case "PV", "P", "V":
		return z80.FlagPV, true
	case "N":
		return z80.FlagN, true
	case "C":
		return z80.FlagC, true
	case "X":
		return z80.FlagX, true
	case "Y":
		return z80.FlagY, true
	}
	return 0, false
}

func boolValue(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
