// Package geo extracts geographic coordinates from free-form SMS text.
// Senders write positions either as a decimal pair ("36.8065, 10.1815") or as
// two degree-minute-second tokens ("34°47'39.2N 10°10'0E").
package geo

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	decimalPairRe = regexp.MustCompile(`([-+]?\d*\.\d+),\s*([-+]?\d*\.\d+)`)
	dmsTokenRe    = regexp.MustCompile(`(?i)\d+°\s*\d+'\s*[\d.]+\s*[NSEW]`)
	dmsPartsRe    = regexp.MustCompile(`(?i)^(\d+)°\s*(\d+)'\s*([\d.]+)\s*([NSEW])$`)
)

// ExtractCoordinates scans text for a coordinate pair. A decimal pair wins
// over DMS tokens; both decimal numbers must contain a decimal point. DMS is
// accepted only when the text holds exactly two tokens, taken in encounter
// order as (lat, lon). An incomplete DMS pair is rejected wholesale rather
// than half-applied. Nil results mean no coordinates were found.
func ExtractCoordinates(text string) (lat, lon *float64) {
	if m := decimalPairRe.FindStringSubmatch(text); m != nil {
		la, errLa := strconv.ParseFloat(m[1], 64)
		lo, errLo := strconv.ParseFloat(m[2], 64)
		if errLa == nil && errLo == nil {
			return &la, &lo
		}
	}

	tokens := dmsTokenRe.FindAllString(text, -1)
	if len(tokens) != 2 {
		return nil, nil
	}
	la := DMSToDecimal(tokens[0])
	lo := DMSToDecimal(tokens[1])
	if la == nil || lo == nil {
		return nil, nil
	}
	return la, lo
}

// DMSToDecimal converts one degree-minute-second token such as "34°47'39.2N"
// to signed decimal degrees. Southern and western hemispheres are negative.
// Returns nil when the token does not match DMS notation.
func DMSToDecimal(s string) *float64 {
	m := dmsPartsRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil
	}
	deg, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	min, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil
	}
	sec, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return nil
	}

	dec := deg + min/60 + sec/3600
	switch strings.ToUpper(m[4]) {
	case "S", "W":
		dec = -dec
	}
	return &dec
}
