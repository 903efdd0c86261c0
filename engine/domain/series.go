package domain

import "sort"

// SupportedSeries maps equipment families to their known model series.
var SupportedSeries = map[string][]string{
	"Tractor":         {"BX1880", "BX2380", "BX23S", "B2601", "B2650", "B3350", "L2501", "L3301", "L3901", "L4701", "L3560", "L6060", "LX2610", "LX3310", "MX5400", "MX6000", "M5-091", "M5-111", "M6060", "M7060", "L47", "M62"},
	"Excavator":       {"KX033-4", "KX040-4", "KX057-4", "KX080-4", "U17", "U27-4", "U35-4", "U55-4"},
	"Track Loader":    {"SVL65-2", "SVL75-2", "SVL97-2"},
	"Skid Steer":      {"SSV65", "SSV75"},
	"Wheel Loader":    {"R430", "R540", "R640"},
	"Mower":           {"Z421", "Z726X", "ZD1211", "ZD1611", "ZG227", "GR2120"},
	"Utility Vehicle": {"RTV520", "RTV-X900", "RTV-X1100C", "RTV-X1140"},
}

// SeriesFamilies returns the supported family names, sorted.
func SeriesFamilies() []string {
	out := make([]string, 0, len(SupportedSeries))
	for f := range SupportedSeries {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
