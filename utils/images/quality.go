package images

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrInvalidJPEG is returned when data does not start with JPEG SOI marker or
// carries no quantization tables.
var ErrInvalidJPEG = errors.New("invalid jpeg")

// Standard (Annex K) luminance quantization table in zigzag order, the order
// tables are stored in DQT segments.
var luminanceQuant = [64]int{
	16, 11, 12, 14, 12, 10, 16, 14,
	13, 14, 18, 17, 16, 19, 24, 40,
	26, 24, 22, 22, 24, 49, 35, 37,
	29, 40, 58, 51, 61, 60, 57, 51,
	56, 55, 64, 72, 92, 78, 64, 68,
	87, 69, 55, 56, 80, 109, 81, 87,
	95, 98, 103, 104, 103, 62, 77, 113,
	121, 112, 100, 120, 92, 101, 103, 99,
}

// JPEGQuality estimates encoder quality level (1-100) by matching the first
// luminance table against the scaled standard one.
func JPEGQuality(data []byte) (int, error) {
	table, err := luminanceTable(data)
	if err != nil {
		return 0, err
	}

	best, bestDiff := 0, math.MaxInt
	for q := 1; q <= 100; q++ {
		scale := 200 - 2*q
		if q < 50 {
			scale = 5000 / q
		}
		diff := 0
		for i, std := range luminanceQuant {
			v := min(max((std*scale+50)/100, 1), 255)
			d := v - table[i]
			if d < 0 {
				d = -d
			}
			diff += d
		}
		if diff <= bestDiff {
			best, bestDiff = q, diff
		}
	}
	return best, nil
}

// luminanceTable walks JPEG markers up to start of scan and returns table 0.
func luminanceTable(data []byte) ([64]int, error) {
	var table [64]int
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return table, ErrInvalidJPEG
	}

	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return table, ErrInvalidJPEG
		}
		marker := data[pos+1]
		if marker == 0xFF {
			// fill byte
			pos++
			continue
		}
		if marker == 0xDA || marker == 0xD9 {
			break
		}
		length := int(binary.BigEndian.Uint16(data[pos+2:]))
		if length < 2 || pos+2+length > len(data) {
			return table, ErrInvalidJPEG
		}
		if marker == 0xDB {
			seg := data[pos+4 : pos+2+length]
			for len(seg) > 0 {
				precision, id := seg[0]>>4, seg[0]&0x0F
				size := 64
				if precision != 0 {
					size = 128
				}
				if len(seg) < 1+size {
					return table, ErrInvalidJPEG
				}
				if id == 0 {
					for i := range table {
						if precision != 0 {
							table[i] = int(binary.BigEndian.Uint16(seg[1+2*i:]))
						} else {
							table[i] = int(seg[1+i])
						}
					}
					return table, nil
				}
				seg = seg[1+size:]
			}
		}
		pos += 2 + length
	}
	return table, ErrInvalidJPEG
}
