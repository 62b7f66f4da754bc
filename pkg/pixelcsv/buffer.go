package pixelcsv

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// FormatStandard is the x,y,r,g,b[,a] per-row representation.
	FormatStandard = "standard"
	// FormatRowMajor is the per-line color-token representation.
	FormatRowMajor = "row_major"
)

// Buffer is an in-memory RGBA grid loaded from a rendered artifact. All
// query methods are read-only; missing coordinates never error, they report
// absence.
type Buffer struct {
	width  int
	height int
	format string
	rows   [][]Pixel // [y][x]
}

// Load reads a pixel CSV file from disk.
func Load(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load pixel csv: %w", err)
	}
	return Parse(data)
}

// Parse decodes pixel CSV content. The format is detected from the first
// data line: a header starting with "x,y,r" selects the standard format,
// any other comma-separated line selects row-major.
func Parse(data []byte) (*Buffer, error) {
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		// '#' opens a comment line unless it is a hex color token.
		if strings.HasPrefix(line, "#") && !looksLikeHexToken(line) {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("pixel csv has no data lines")
	}

	if strings.HasPrefix(lines[0], "x,y,r") {
		return parseStandard(lines)
	}
	if strings.Contains(lines[0], ",") || looksLikeHexToken(lines[0]) || strings.HasPrefix(lines[0], "R") {
		return parseRowMajor(lines)
	}
	return nil, fmt.Errorf("unrecognized pixel csv format")
}

// Width returns the grid width in pixels.
func (b *Buffer) Width() int { return b.width }

// Height returns the grid height in pixels.
func (b *Buffer) Height() int { return b.height }

// Format returns which on-disk representation the buffer was loaded from.
func (b *Buffer) Format() string { return b.format }

// PixelAt returns the pixel at (x, y) and whether the coordinate exists.
func (b *Buffer) PixelAt(x, y int) (Pixel, bool) {
	if y < 0 || y >= len(b.rows) || x < 0 || x >= len(b.rows[y]) {
		return Pixel{}, false
	}
	return b.rows[y][x], true
}

// Region collects the pixels inside the given rectangle, clipped to the
// buffer bounds, in row-major order.
func (b *Buffer) Region(x0, y0, width, height int) []Pixel {
	var region []Pixel
	for y := y0; y < y0+height && y < b.height; y++ {
		for x := x0; x < x0+width && x < b.width; x++ {
			if p, ok := b.PixelAt(x, y); ok {
				region = append(region, p)
			}
		}
	}
	return region
}

// AverageColor computes the per-channel mean over a region. An empty region
// averages to the zero pixel.
func (b *Buffer) AverageColor(x0, y0, width, height int) Pixel {
	region := b.Region(x0, y0, width, height)
	if len(region) == 0 {
		return Pixel{}
	}
	var sumR, sumG, sumB, sumA uint64
	for _, p := range region {
		sumR += uint64(p.R)
		sumG += uint64(p.G)
		sumB += uint64(p.B)
		sumA += uint64(p.A)
	}
	n := uint64(len(region))
	return Pixel{
		R: uint8(sumR / n),
		G: uint8(sumG / n),
		B: uint8(sumB / n),
		A: uint8(sumA / n),
	}
}

// CountExact counts pixels equal to color on every channel.
func (b *Buffer) CountExact(color Pixel) int {
	count := 0
	for _, row := range b.rows {
		for _, p := range row {
			if p == color {
				count++
			}
		}
	}
	return count
}

// CountWithinTolerance counts pixels whose channels are all within
// tolerance of color.
func (b *Buffer) CountWithinTolerance(color Pixel, tolerance uint8) int {
	count := 0
	for _, row := range b.rows {
		for _, p := range row {
			if p.EqualsWithTolerance(color, tolerance) {
				count++
			}
		}
	}
	return count
}

// CountNonBlack counts pixels with any RGB channel strictly above
// channelThreshold. Validation steps use this to assert that a rendered
// image actually contains color data rather than a blank buffer.
func (b *Buffer) CountNonBlack(channelThreshold uint8) int {
	count := 0
	for _, row := range b.rows {
		for _, p := range row {
			if p.R > channelThreshold || p.G > channelThreshold || p.B > channelThreshold {
				count++
			}
		}
	}
	return count
}

// BrightnessStats holds min/max/average luminance over the whole buffer.
type BrightnessStats struct {
	Min     uint8
	Max     uint8
	Average float64
}

// Brightness computes luminance statistics over every pixel.
func (b *Buffer) Brightness() BrightnessStats {
	stats := BrightnessStats{Min: 255}
	if b.width == 0 || b.height == 0 {
		return stats
	}
	var sum float64
	count := 0
	for _, row := range b.rows {
		for _, p := range row {
			lum := p.Luminance()
			if lum < stats.Min {
				stats.Min = lum
			}
			if lum > stats.Max {
				stats.Max = lum
			}
			sum += float64(lum)
			count++
		}
	}
	if count > 0 {
		stats.Average = sum / float64(count)
	}
	return stats
}

// IsMostlyEmpty reports whether at least 90% of pixels have luminance
// strictly below threshold. An empty buffer counts as empty.
func (b *Buffer) IsMostlyEmpty(threshold uint8) bool {
	total := 0
	dark := 0
	for _, row := range b.rows {
		for _, p := range row {
			if p.Luminance() < threshold {
				dark++
			}
			total++
		}
	}
	if total == 0 {
		return true
	}
	return dark*10 >= total*9
}

// HasSignificantVariation reports whether the luminance spread reaches
// minDiff.
func (b *Buffer) HasSignificantVariation(minDiff uint8) bool {
	stats := b.Brightness()
	return int(stats.Max)-int(stats.Min) >= int(minDiff)
}

// OpacityPercentage returns the share of pixels with alpha above 127, in
// percent.
func (b *Buffer) OpacityPercentage() float64 {
	total := 0
	opaque := 0
	for _, row := range b.rows {
		for _, p := range row {
			if p.A > 127 {
				opaque++
			}
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return 100 * float64(opaque) / float64(total)
}

// VerifyDimensions reports whether the buffer matches the expected size.
func (b *Buffer) VerifyDimensions(width, height int) bool {
	return b.width == width && b.height == height
}

// Histogram counts occurrences of each packed ARGB color.
func (b *Buffer) Histogram() map[uint32]int {
	hist := make(map[uint32]int)
	for _, row := range b.rows {
		for _, p := range row {
			hist[p.ARGB()]++
		}
	}
	return hist
}

func parseStandard(lines []string) (*Buffer, error) {
	buf := &Buffer{format: FormatStandard}

	for _, line := range lines[1:] {
		fields := strings.Split(line, ",")
		if len(fields) < 5 {
			continue
		}
		x, err1 := strconv.Atoi(strings.TrimSpace(fields[0]))
		y, err2 := strconv.Atoi(strings.TrimSpace(fields[1]))
		r, err3 := parseChannel(fields[2])
		g, err4 := parseChannel(fields[3])
		b, err5 := parseChannel(fields[4])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil || x < 0 || y < 0 {
			return nil, fmt.Errorf("malformed pixel row %q", line)
		}
		a := uint8(255)
		if len(fields) >= 6 && strings.TrimSpace(fields[5]) != "" {
			av, err := parseChannel(fields[5])
			if err != nil {
				return nil, fmt.Errorf("malformed alpha in row %q", line)
			}
			a = av
		}

		if x+1 > buf.width {
			buf.width = x + 1
		}
		if y+1 > buf.height {
			buf.height = y + 1
		}
		for len(buf.rows) <= y {
			buf.rows = append(buf.rows, nil)
		}
		for len(buf.rows[y]) <= x {
			buf.rows[y] = append(buf.rows[y], Pixel{A: 255})
		}
		buf.rows[y][x] = Pixel{R: r, G: g, B: b, A: a}
	}

	if len(buf.rows) == 0 {
		return nil, fmt.Errorf("standard pixel csv has no pixel rows")
	}
	return buf, nil
}

func parseRowMajor(lines []string) (*Buffer, error) {
	buf := &Buffer{format: FormatRowMajor}

	for _, line := range lines {
		var row []Pixel
		for _, token := range strings.Split(line, ",") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			p, ok := parseColorToken(token)
			if !ok {
				continue
			}
			row = append(row, p)
		}
		if len(row) > 0 {
			buf.rows = append(buf.rows, row)
			if len(row) > buf.width {
				buf.width = len(row)
			}
			buf.height++
		}
	}

	if buf.width == 0 || buf.height == 0 {
		return nil, fmt.Errorf("row-major pixel csv has no pixel tokens")
	}
	return buf, nil
}

// parseColorToken accepts "R###G###B###" and "#RRGGBB" tokens.
func parseColorToken(token string) (Pixel, bool) {
	if strings.HasPrefix(token, "#") {
		hexVal, err := strconv.ParseUint(token[1:], 16, 32)
		if err != nil {
			return Pixel{}, false
		}
		return Opaque(uint8(hexVal>>16), uint8(hexVal>>8), uint8(hexVal)), true
	}

	rPos := strings.IndexByte(token, 'R')
	gPos := strings.IndexByte(token, 'G')
	bPos := strings.IndexByte(token, 'B')
	if rPos < 0 || gPos < 0 || bPos < 0 || !(rPos < gPos && gPos < bPos) {
		return Pixel{}, false
	}
	r, err1 := strconv.ParseUint(token[rPos+1:gPos], 10, 8)
	g, err2 := strconv.ParseUint(token[gPos+1:bPos], 10, 8)
	b, err3 := strconv.ParseUint(token[bPos+1:], 10, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return Pixel{}, false
	}
	return Opaque(uint8(r), uint8(g), uint8(b)), true
}

func looksLikeHexToken(line string) bool {
	if len(line) < 7 {
		return false
	}
	for _, c := range line[1:7] {
		isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !isHex {
			return false
		}
	}
	return true
}

func parseChannel(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	return uint8(v), err
}
