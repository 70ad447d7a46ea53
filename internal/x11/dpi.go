package x11

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/BurntSushi/xgbutil/xprop"
)

// baseDPI is the resolution at which the scale factor is 1.
const baseDPI = 96.0

// ScaleFactor derives the backend scale factor from the Xft.dpi resource.
// It returns 1 when the resource is not set.
func (c *Connection) ScaleFactor() float64 {
	reply, err := xprop.GetProperty(c.XUtil, c.Root, "RESOURCE_MANAGER")
	if err != nil || reply == nil {
		return 1
	}
	dpi, ok := ParseXftDPI(string(reply.Value))
	if !ok {
		return 1
	}
	return dpi / baseDPI
}

// ParseXftDPI finds the Xft.dpi value in an X resource database string.
func ParseXftDPI(resources string) (float64, bool) {
	sc := bufio.NewScanner(strings.NewReader(resources))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) != "Xft.dpi" {
			continue
		}
		dpi, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || dpi <= 0 {
			return 0, false
		}
		return dpi, true
	}
	return 0, false
}
