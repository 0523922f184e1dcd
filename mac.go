package bridge

// MAC represents a MAC address, in little endian format.
type MAC [6]byte

// ParseMAC parses the given MAC address, which must be in 11:22:33:AA:BB:CC
// format. Both upper and lower case hex digits are accepted. If it cannot be
// parsed, an error is returned.
func ParseMAC(s string) (mac MAC, err error) {
	if len(s) != 17 {
		return MAC{}, ErrInvalidMAC
	}
	for i := 0; i < 6; i++ {
		pos := i * 3
		if i != 5 && s[pos+2] != ':' {
			return MAC{}, ErrInvalidMAC
		}
		hi, ok1 := fromHexChar(s[pos])
		lo, ok2 := fromHexChar(s[pos+1])
		if !ok1 || !ok2 {
			return MAC{}, ErrInvalidMAC
		}
		mac[5-i] = hi<<4 | lo
	}
	return mac, nil
}

func fromHexChar(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

const hexDigits = "0123456789ABCDEF"

// String returns a human-readable version of this MAC address, such as
// 11:22:33:AA:BB:CC.
func (mac MAC) String() string {
	var buf [17]byte
	for i := 0; i < 6; i++ {
		c := mac[5-i]
		pos := i * 3
		buf[pos] = hexDigits[c>>4]
		buf[pos+1] = hexDigits[c&0x0f]
		if i != 5 {
			buf[pos+2] = ':'
		}
	}
	return string(buf[:])
}

// IsZero reports whether the address is unset.
func (mac MAC) IsZero() bool {
	return mac == MAC{}
}
