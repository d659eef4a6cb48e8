package card

const (
	minPANLength = 13
	maxPANLength = 19
)

// ValidateLuhn reports whether the cleaned number is 13-19 digits with a
// valid Luhn checksum.
func ValidateLuhn(number string) bool {
	n := Clean(number)
	if len(n) < minPANLength || len(n) > maxPANLength {
		return false
	}

	sum := 0
	double := false
	for i := len(n) - 1; i >= 0; i-- {
		c := n[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
