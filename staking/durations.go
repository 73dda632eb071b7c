package staking

import "strings"

// Duration is one lock length offered to stakers
type Duration struct {
	Code   string
	Months int
	Days   int64
	Label  string
}

// Seconds is the single payout period of a lock of this duration
func (d Duration) Seconds() uint64 {
	return uint64(d.Days) * 86400
}

// Multiplier of a lock of this duration
func (d Duration) Multiplier() float64 {
	return Multiplier(d.Days)
}

// Title of the lock metadata, which also drives classification of the position
func (d Duration) Title() string {
	return "BUNKER STAKING " + d.Code
}

// Durations lists the offered lock lengths, shortest first
var Durations = []Duration{
	{Code: "1M", Months: 1, Days: 30, Label: "1 month"},
	{Code: "3M", Months: 3, Days: 90, Label: "3 months"},
	{Code: "6M", Months: 6, Days: 180, Label: "6 months"},
	{Code: "12M", Months: 12, Days: 365, Label: "12 months"},
}

var durationAliases = map[string]string{
	"1m":        "1M",
	"1":         "1M",
	"1 month":   "1M",
	"3m":        "3M",
	"3":         "3M",
	"3 months":  "3M",
	"6m":        "6M",
	"6":         "6M",
	"6 months":  "6M",
	"12m":       "12M",
	"12":        "12M",
	"12 months": "12M",
	"1y":        "12M",
	"1 year":    "12M",
}

// ParseDuration accepts a code or one of its spellings. Unknown values are rejected.
func ParseDuration(s string) (Duration, bool) {
	code, ok := durationAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return Duration{}, false
	}
	for _, d := range Durations {
		if d.Code == code {
			return d, true
		}
	}
	return Duration{}, false
}
