package ula

// DisplayParameters describes the ULA raster timing. Line counts are in
// raster lines, times are in CPU tacts (one tact draws two pixels).
type DisplayParameters struct {
	RefreshRate       int
	FlashToggleFrames int

	VerticalSyncLines           int
	NonVisibleBorderTopLines    int
	BorderTopLines              int
	DisplayLines                int
	BorderBottomLines           int
	NonVisibleBorderBottomLines int

	HorizontalBlankingTime    int
	BorderLeftTime            int
	DisplayLineTime           int
	BorderRightTime           int
	NonVisibleBorderRightTime int

	PixelDataPrefetchTime     int
	AttributeDataPrefetchTime int

	InterruptTact int
}

// Parameters48 returns the timing of the 48K Spectrum.
func Parameters48() DisplayParameters {
	return DisplayParameters{
		RefreshRate:       50,
		FlashToggleFrames: 25,

		VerticalSyncLines:           8,
		NonVisibleBorderTopLines:    8,
		BorderTopLines:              48,
		DisplayLines:                192,
		BorderBottomLines:           48,
		NonVisibleBorderBottomLines: 8,

		HorizontalBlankingTime:    40,
		BorderLeftTime:            24,
		DisplayLineTime:           128,
		BorderRightTime:           24,
		NonVisibleBorderRightTime: 8,

		PixelDataPrefetchTime:     2,
		AttributeDataPrefetchTime: 1,

		InterruptTact: 32,
	}
}

// Parameters128 returns the timing of the Spectrum 128 (228 tact lines,
// 311 lines per frame).
func Parameters128() DisplayParameters {
	p := Parameters48()
	p.NonVisibleBorderTopLines = 7
	p.NonVisibleBorderRightTime = 12
	return p
}

func (p DisplayParameters) ScreenLines() int {
	return p.BorderTopLines + p.DisplayLines + p.BorderBottomLines
}

func (p DisplayParameters) ScreenWidth() int {
	return 2 * (p.BorderLeftTime + p.DisplayLineTime + p.BorderRightTime)
}

func (p DisplayParameters) FirstDisplayLine() int {
	return p.VerticalSyncLines + p.NonVisibleBorderTopLines + p.BorderTopLines
}

func (p DisplayParameters) LastDisplayLine() int {
	return p.FirstDisplayLine() + p.DisplayLines - 1
}

func (p DisplayParameters) FirstPixelTactInLine() int {
	return p.HorizontalBlankingTime + p.BorderLeftTime
}

func (p DisplayParameters) LineTime() int {
	return p.FirstPixelTactInLine() + p.DisplayLineTime + p.BorderRightTime + p.NonVisibleBorderRightTime
}

func (p DisplayParameters) FrameLines() int {
	return p.FirstDisplayLine() + p.DisplayLines + p.BorderBottomLines + p.NonVisibleBorderBottomLines
}

// FrameTacts is the number of tacts in a frame.
func (p DisplayParameters) FrameTacts() int {
	return p.FrameLines() * p.LineTime()
}

// FirstDisplayPixelTact is the frame tact of the top left display pixel.
func (p DisplayParameters) FirstDisplayPixelTact() int {
	return p.FirstDisplayLine()*p.LineTime() + p.FirstPixelTactInLine()
}

func (p DisplayParameters) isTactVisible(line, tactInLine int) bool {
	firstVisibleLine := p.VerticalSyncLines + p.NonVisibleBorderTopLines
	lastVisibleLine := firstVisibleLine + p.ScreenLines()
	return line >= firstVisibleLine &&
		line < lastVisibleLine &&
		tactInLine >= p.HorizontalBlankingTime &&
		tactInLine < p.LineTime()-p.NonVisibleBorderRightTime
}

func (p DisplayParameters) isTactInDisplayArea(line, tactInLine int) bool {
	return line >= p.FirstDisplayLine() &&
		line <= p.LastDisplayLine() &&
		tactInLine >= p.FirstPixelTactInLine() &&
		tactInLine < p.FirstPixelTactInLine()+p.DisplayLineTime
}
