package services

import (
	"strconv"
	"strings"
)

const unknown = "unknown"

// Helpers for projecting raw RouterOS records. None of them fail: missing or
// unparsable values become zero, false or the given default.

func str(r Record, key, def string) string {
	if v, ok := r[key]; ok && v != "" {
		return v
	}
	return def
}

// firstOf returns the first non-empty value among keys.
func firstOf(r Record, keys ...string) string {
	for _, k := range keys {
		if v := r[k]; v != "" {
			return v
		}
	}
	return ""
}

// num parses the leading decimal digits of the first present key, so that
// "54Mbps" is 54 and "144.4Mbps-20MHz" is 144. Negative, missing and
// overflowing values are 0.
func num(r Record, keys ...string) uint64 {
	v := strings.TrimSpace(firstOf(r, keys...))
	end := 0
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.ParseUint(v[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// signed parses a leading optionally negative integer, e.g. "-67@HT20".
func signed(r Record, key string) int64 {
	v := strings.TrimSpace(r[key])
	neg := strings.HasPrefix(v, "-")
	if neg {
		v = v[1:]
	}
	n := num(Record{"v": v}, "v")
	if n > 1<<62 {
		return 0
	}
	if neg {
		return -int64(n)
	}
	return int64(n)
}

// flag accepts both API ("true") and CLI ("yes") spellings.
func flag(r Record, key string) bool {
	switch strings.ToLower(r[key]) {
	case "true", "yes":
		return true
	}
	return false
}

func idOr(r Record, index int) string {
	if id := r[".id"]; id != "" {
		return id
	}
	return strconv.Itoa(index + 1)
}

// percentUsed returns the used share of total in whole percent.
func percentUsed(free, total uint64) uint64 {
	if total == 0 || free > total {
		return 0
	}
	return (total - free) * 100 / total
}

func logLevel(topics string) string {
	t := strings.ToLower(topics)
	switch {
	case strings.Contains(t, "error"), strings.Contains(t, "critical"):
		return "error"
	case strings.Contains(t, "warning"):
		return "warning"
	case strings.Contains(t, "debug"):
		return "debug"
	}
	return "info"
}

func wirelessSecurity(r Record) string {
	if p := r["security-profile"]; p != "" {
		return p
	}
	if r["wpa-pre-shared-key"] != "" || r["wpa2-pre-shared-key"] != "" {
		return "WPA2-PSK"
	}
	return str(r, "security", unknown)
}

var speedUnits = []struct {
	suffix string
	mult   float64
}{
	{"gbps", 1e9}, {"gb/s", 1e9},
	{"mbps", 1e6}, {"mb/s", 1e6},
	{"kbps", 1e3}, {"kb/s", 1e3},
	{"bps", 1},
}

// linkSpeed returns the nominal speed of an interface in bits per second.
// An explicit speed wins; otherwise it is guessed from the interface type,
// and 0 means unknown.
func linkSpeed(r Record) uint64 {
	for _, key := range []string{"speed", "max-speed"} {
		if v := parseSpeed(r[key]); v > 0 {
			return v
		}
	}
	t := strings.ToLower(r["type"])
	switch {
	case strings.Contains(t, "ether"):
		return 1_000_000_000
	case strings.Contains(t, "wlan"), strings.Contains(t, "wifi"), strings.Contains(t, "wireless"):
		return 300_000_000
	case strings.Contains(t, "ppp"):
		return 100_000_000
	}
	return 0
}

// parseSpeed reads "1Gbps", "100 Mb/s" or a bare number of bits per second.
func parseSpeed(s string) uint64 {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	mult := 1.0
	for _, u := range speedUnits {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			mult = u.mult
			break
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0
	}
	return uint64(f * mult)
}
