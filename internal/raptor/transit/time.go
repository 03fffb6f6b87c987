package transit

import "fmt"

// FormatTime renders seconds since midnight as H:MM or H:MM:SS.
func FormatTime(t int) string {
	if t == NotSet {
		return "-"
	}
	sign := ""
	if t < 0 {
		sign = "-"
		t = -t
	}
	h, m, s := t/3600, (t/60)%60, t%60
	if s == 0 {
		return fmt.Sprintf("%s%d:%02d", sign, h, m)
	}
	return fmt.Sprintf("%s%d:%02d:%02d", sign, h, m, s)
}

// HMS converts hours, minutes and seconds to seconds since midnight.
func HMS(h, m, s int) int {
	return h*3600 + m*60 + s
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
