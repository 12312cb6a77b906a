package ula

// RenderingPhase is the ULA activity in a single frame tact.
type RenderingPhase byte

const (
	PhaseNone RenderingPhase = iota
	PhaseBorder
	PhaseBorderAndFetchPixelByte
	PhaseBorderAndFetchPixelAttribute
	PhaseDisplayByte1
	PhaseDisplayByte1AndFetchByte2
	PhaseDisplayByte1AndFetchAttribute2
	PhaseDisplayByte2
	PhaseDisplayByte2AndFetchByte1
	PhaseDisplayByte2AndFetchAttribute1
)

var phaseNames = [...]string{
	"None",
	"Border",
	"BorderAndFetchPixelByte",
	"BorderAndFetchPixelAttribute",
	"DisplayByte1",
	"DisplayByte1AndFetchByte2",
	"DisplayByte1AndFetchAttribute2",
	"DisplayByte2",
	"DisplayByte2AndFetchByte1",
	"DisplayByte2AndFetchAttribute1",
}

func (p RenderingPhase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "Unknown"
}

// RenderingTact is one entry of the screen rendering table.
type RenderingTact struct {
	Phase           RenderingPhase
	ContentionDelay int
	PixelAddr       uint16
	AttrAddr        uint16
	XPos            int
	YPos            int
}

// buildRenderingTable computes the phase, contention delay and fetch
// addresses of every tact in a frame.
func buildRenderingTable(p DisplayParameters) []RenderingTact {
	frameTacts := p.FrameTacts()
	lineTime := p.LineTime()
	firstPixelTact := p.FirstPixelTactInLine()
	lastPixelTact := firstPixelTact + p.DisplayLineTime

	table := make([]RenderingTact, frameTacts)
	for tact := range table {
		line := tact / lineTime
		tactInLine := tact % lineTime

		item := RenderingTact{Phase: PhaseNone}
		if !p.isTactVisible(line, tactInLine) {
			table[tact] = item
			continue
		}

		item.XPos = (tactInLine - p.HorizontalBlankingTime) * 2
		item.YPos = line - p.VerticalSyncLines - p.NonVisibleBorderTopLines

		if !p.isTactInDisplayArea(line, tactInLine) {
			item.Phase = PhaseBorder
			if line >= p.FirstDisplayLine() && line <= p.LastDisplayLine() {
				switch tactInLine {
				case firstPixelTact - p.PixelDataPrefetchTime:
					item.Phase = PhaseBorderAndFetchPixelByte
					item.PixelAddr = pixelAddress(p, line, tactInLine+p.PixelDataPrefetchTime)
					item.ContentionDelay = 6
				case firstPixelTact - p.AttributeDataPrefetchTime:
					item.Phase = PhaseBorderAndFetchPixelAttribute
					item.AttrAddr = attributeAddress(p, line, tactInLine+p.AttributeDataPrefetchTime)
					item.ContentionDelay = 5
				}
			}
			table[tact] = item
			continue
		}

		switch (tactInLine - firstPixelTact) & 7 {
		case 0:
			item.Phase = PhaseDisplayByte1
			item.ContentionDelay = 4
		case 1:
			item.Phase = PhaseDisplayByte1
			item.ContentionDelay = 3
		case 2:
			item.Phase = PhaseDisplayByte1AndFetchByte2
			item.PixelAddr = pixelAddress(p, line, tactInLine+2)
			item.ContentionDelay = 2
		case 3:
			item.Phase = PhaseDisplayByte1AndFetchAttribute2
			item.AttrAddr = attributeAddress(p, line, tactInLine+1)
			item.ContentionDelay = 1
		case 4, 5:
			item.Phase = PhaseDisplayByte2
		case 6:
			item.Phase = PhaseDisplayByte2
			if tactInLine < lastPixelTact-2 {
				item.Phase = PhaseDisplayByte2AndFetchByte1
				item.PixelAddr = pixelAddress(p, line, tactInLine+2)
				item.ContentionDelay = 6
			}
		case 7:
			item.Phase = PhaseDisplayByte2
			if tactInLine < lastPixelTact-1 {
				item.Phase = PhaseDisplayByte2AndFetchAttribute1
				item.AttrAddr = attributeAddress(p, line, tactInLine+1)
				item.ContentionDelay = 5
			}
		}
		table[tact] = item
	}
	return table
}

// pixelAddress maps a display line and tact to the bitmap byte address,
// swapping the V2-V0 and V5-V3 line bit groups.
func pixelAddress(p DisplayParameters, line, tactInLine int) uint16 {
	row := line - p.FirstDisplayLine()
	column := 2 * (tactInLine - p.FirstPixelTactInLine())
	da := 0x4000 | column>>3 | row<<5
	return uint16(da&0xF81F | (da&0x0700)>>3 | (da&0x00E0)<<3)
}

func attributeAddress(p DisplayParameters, line, tactInLine int) uint16 {
	row := line - p.FirstDisplayLine()
	column := 2 * (tactInLine - p.FirstPixelTactInLine())
	return uint16(0x5800 + (column>>3 | (row>>3)<<5))
}
