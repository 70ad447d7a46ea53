package x11

import "testing"

func TestParseXftDPI(t *testing.T) {
	cases := []struct {
		name      string
		resources string
		want      float64
		ok        bool
	}{
		{"tab separated", "Xcursor.size:\t24\nXft.dpi:\t144\n", 144, true},
		{"spaces", "Xft.dpi: 96", 96, true},
		{"missing", "Xft.antialias:\t1\n", 0, false},
		{"garbage", "Xft.dpi:\tlarge\n", 0, false},
		{"zero", "Xft.dpi:\t0\n", 0, false},
		{"empty", "", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseXftDPI(tc.resources)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("ParseXftDPI(%q) = %v, %v; want %v, %v", tc.resources, got, ok, tc.want, tc.ok)
			}
		})
	}
}
