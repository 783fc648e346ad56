package gps

import (
	"strconv"
	"strings"
)

// Parser assembles NMEA 0183 sentences from a raw byte stream and
// tracks the receiver's latest fix state. Malformed sentences, bad
// checksums, and partial lines are absorbed silently: they simply
// never contribute to a valid fix.
//
// Only two sentence types matter here: GGA carries fix quality,
// satellite count, and position; RMC carries the validity flag.
type Parser struct {
	line string
	fix  Fix

	// RMC validity and GGA quality are tracked separately so a fix is
	// only marked valid once both agree the position is usable.
	ggaValid bool
	rmcValid bool
	rmcSeen  bool
}

// maxLine bounds sentence assembly so a noisy line without terminators
// cannot grow the buffer without limit. NMEA caps sentences at 82 chars.
const maxLine = 128

// Feed consumes a chunk of receiver bytes. Any number of complete or
// partial sentences may arrive per call.
func (p *Parser) Feed(data []byte) {
	for _, b := range data {
		switch b {
		case '\n', '\r':
			if p.line != "" {
				p.sentence(p.line)
				p.line = ""
			}
		default:
			if len(p.line) < maxLine {
				p.line += string(b)
			} else {
				// Oversized garbage: discard and resync on next terminator.
				p.line = ""
			}
		}
	}
}

// Fix returns the current accumulated fix state.
func (p *Parser) Fix() Fix {
	f := p.fix
	// RMC is optional on some modules; when it has never been seen,
	// GGA quality alone decides validity.
	f.Valid = p.ggaValid && (!p.rmcSeen || p.rmcValid)
	return f
}

func (p *Parser) sentence(s string) {
	body, ok := checksum(s)
	if !ok {
		return
	}

	fields := strings.Split(body, ",")
	if len(fields) == 0 {
		return
	}

	// Talker prefix varies (GP, GN, GL); match on the sentence type.
	typ := fields[0]
	if len(typ) != 5 {
		return
	}
	switch typ[2:] {
	case "GGA":
		p.gga(fields)
	case "RMC":
		p.rmc(fields)
	}
}

// gga parses a Global Positioning System Fix Data sentence:
// $GPGGA,time,lat,N,lon,E,quality,numSats,hdop,alt,M,...
func (p *Parser) gga(f []string) {
	if len(f) < 8 {
		return
	}

	if n, err := strconv.Atoi(f[7]); err == nil {
		p.fix.Satellites = n
	}

	quality, err := strconv.Atoi(f[6])
	if err != nil || quality < 1 {
		p.ggaValid = false
		return
	}

	lat, latOK := parseCoord(f[2], f[3])
	lon, lonOK := parseCoord(f[4], f[5])
	if !latOK || !lonOK {
		p.ggaValid = false
		return
	}

	p.fix.Lat = lat
	p.fix.Lon = lon
	p.ggaValid = true
}

// rmc parses a Recommended Minimum sentence:
// $GPRMC,time,status,lat,N,lon,E,...  status is A (valid) or V (void).
func (p *Parser) rmc(f []string) {
	if len(f) < 3 {
		return
	}
	p.rmcSeen = true
	p.rmcValid = f[2] == "A"
}

// parseCoord converts NMEA ddmm.mmmm plus hemisphere into decimal
// degrees. Longitude uses dddmm.mmmm; the split point is found from
// the dot position so both forms parse with the same code.
func parseCoord(value, hemi string) (float64, bool) {
	dot := strings.IndexByte(value, '.')
	if dot < 3 {
		return 0, false
	}

	deg, err := strconv.ParseFloat(value[:dot-2], 64)
	if err != nil {
		return 0, false
	}
	min, err := strconv.ParseFloat(value[dot-2:], 64)
	if err != nil {
		return 0, false
	}

	coord := deg + min/60
	switch hemi {
	case "N", "E":
	case "S", "W":
		coord = -coord
	default:
		return 0, false
	}
	return coord, true
}

// checksum validates "$body*hh" and returns the body. Sentences
// without the leading $ or with a checksum mismatch are rejected.
func checksum(s string) (string, bool) {
	if len(s) < 4 || s[0] != '$' {
		return "", false
	}
	star := strings.LastIndexByte(s, '*')
	if star < 0 || star+3 != len(s) {
		return "", false
	}

	body := s[1:star]
	want, err := strconv.ParseUint(s[star+1:], 16, 8)
	if err != nil {
		return "", false
	}

	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	if sum != byte(want) {
		return "", false
	}
	return body, true
}
