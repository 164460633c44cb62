// Package sanitizer turns raw upstream price records into the strictly
// ordered, duplicate-free series the chart renderer accepts.
package sanitizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"SilverReport/internal/model"
)

// DuplicatePolicy decides which record survives when several share a timestamp.
type DuplicatePolicy int

const (
	// KeepLast keeps the most recently reported value for a timestamp.
	KeepLast DuplicatePolicy = iota
	// KeepFirst keeps the first record in sorted order.
	KeepFirst
)

// ParsePolicy maps "first" / "last" to a DuplicatePolicy.
func ParsePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last":
		return KeepLast, nil
	case "first":
		return KeepFirst, nil
	default:
		return KeepLast, fmt.Errorf("unknown duplicate policy %q", s)
	}
}

func (p DuplicatePolicy) String() string {
	if p == KeepFirst {
		return "first"
	}
	return "last"
}

var (
	errMissing   = errors.New("missing value")
	errNotFinite = errors.New("not a finite number")
)

// Sanitize normalizes, filters, sorts and deduplicates raw. The result has
// strictly increasing timestamps and finite prices; it may be empty.
func Sanitize(raw []model.RawBar, policy DuplicatePolicy) []model.PriceBar {
	bars := make([]model.PriceBar, 0, len(raw))
	for _, r := range raw {
		bar, err := normalize(r)
		if err != nil {
			continue
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time < bars[j].Time })

	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Time == b.Time {
			if policy == KeepLast {
				out[n-1] = b
			}
			continue
		}
		out = append(out, b)
	}
	return out
}

// FromPriceBars converts cleaned bars back into raw records, e.g. to feed a
// series through Sanitize again.
func FromPriceBars(bars []model.PriceBar) []model.RawBar {
	raw := make([]model.RawBar, len(bars))
	for i, b := range bars {
		raw[i] = model.RawBar{Time: b.Time, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close}
	}
	return raw
}

func normalize(r model.RawBar) (model.PriceBar, error) {
	ts, err := ParseTime(r.TimeValue())
	if err != nil {
		return model.PriceBar{}, fmt.Errorf("time: %w", err)
	}
	var prices [4]float64
	for i, v := range []any{r.Open, r.High, r.Low, r.Close} {
		p, err := ParsePrice(v)
		if err != nil {
			return model.PriceBar{}, fmt.Errorf("price %d: %w", i, err)
		}
		prices[i] = p
	}
	return model.PriceBar{Time: ts, Open: prices[0], High: prices[1], Low: prices[2], Close: prices[3]}, nil
}

// ParseTime converts a calendar string or a numeric Unix timestamp (seconds)
// to Unix seconds. Strings without an offset are read as UTC.
func ParseTime(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, errMissing
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, errMissing
		}
		if isYear(s) {
			parsed, err := time.Parse("2006", s)
			if err != nil {
				return 0, err
			}
			return parsed.Unix(), nil
		}
		if f, err := parseFinite(s); err == nil {
			return unixSeconds(f)
		}
		parsed, err := cast.ToTimeE(s)
		if err != nil {
			return 0, err
		}
		return parsed.Unix(), nil
	case bool:
		return 0, fmt.Errorf("unexpected bool %v", t)
	default:
		f, err := ParsePrice(v)
		if err != nil {
			return 0, err
		}
		return unixSeconds(f)
	}
}

// Bounds of float64 values that floor into an int64 without overflow.
const (
	minUnix = -9223372036854775808.0
	maxUnix = 9223372036854775808.0
)

func unixSeconds(f float64) (int64, error) {
	f = math.Floor(f)
	if f < minUnix || f >= maxUnix {
		return 0, errNotFinite
	}
	return int64(f), nil
}

// isYear reports whether s is a bare four-digit year, which reads as
// January 1st of that year rather than as epoch seconds.
func isYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParsePrice coerces a number or numeric string to a finite float64.
func ParsePrice(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, errMissing
	case bool:
		return 0, fmt.Errorf("unexpected bool %v", t)
	case string:
		return parseFinite(strings.TrimSpace(t))
	case json.Number:
		return parseFinite(t.String())
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	return f, nil
}

func parseFinite(s string) (float64, error) {
	if s == "" {
		return 0, errMissing
	}
	f, err := cast.ToFloat64E(s)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	return f, nil
}
