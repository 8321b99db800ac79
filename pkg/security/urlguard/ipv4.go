package urlguard

import (
	"errors"
	"net"
	"strconv"
	"strings"
)

var errBadIPv4 = errors.New("malformed IPv4 host")

// CanonicalHost returns host in the form a browser connects to. Hosts that
// end in a number are parsed with the URL standard's IPv4 rules (one to
// four parts, each decimal, 0x-prefixed hex or 0-prefixed octal, the last
// part filling the remaining bytes), so "2130706433", "0x7f000001",
// "127.1" and "0177.0.0.1" all become "127.0.0.1". Other hosts are
// returned lowercased. An error means the host ends in a number but is
// not a valid IPv4 address, which browsers refuse to load.
func CanonicalHost(host string) (string, error) {
	host = strings.ToLower(host)
	if strings.Contains(host, ":") || !endsInNumber(host) {
		return host, nil
	}
	ip, err := parseIPv4(host)
	if err != nil {
		return "", err
	}
	return ip.String(), nil
}

func splitLabels(host string) []string {
	parts := strings.Split(host, ".")
	if len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// endsInNumber reports whether the last label is all digits or a 0x hex
// number, which makes the whole host an IPv4 candidate.
func endsInNumber(host string) bool {
	parts := splitLabels(host)
	last := parts[len(parts)-1]
	if last == "" {
		return false
	}
	if isDigits(last) {
		return true
	}
	if strings.HasPrefix(last, "0x") {
		return isHex(last[2:])
	}
	return false
}

func parseIPv4(host string) (net.IP, error) {
	parts := splitLabels(host)
	if len(parts) > 4 {
		return nil, errBadIPv4
	}

	nums := make([]uint64, len(parts))
	for i, p := range parts {
		n, err := parseIPv4Part(p)
		if err != nil {
			return nil, err
		}
		nums[i] = n
	}

	for _, n := range nums[:len(nums)-1] {
		if n > 255 {
			return nil, errBadIPv4
		}
	}
	last := nums[len(nums)-1]
	if last >= 1<<(8*(5-len(nums))) {
		return nil, errBadIPv4
	}

	addr := last
	for i, n := range nums[:len(nums)-1] {
		addr += n << (8 * (3 - i))
	}
	return net.IPv4(byte(addr>>24), byte(addr>>16), byte(addr>>8), byte(addr)), nil
}

func parseIPv4Part(p string) (uint64, error) {
	if p == "" {
		return 0, errBadIPv4
	}
	base := 10
	switch {
	case strings.HasPrefix(p, "0x"):
		p, base = p[2:], 16
		if p == "" {
			return 0, nil
		}
	case len(p) > 1 && p[0] == '0':
		p, base = p[1:], 8
	}
	n, err := strconv.ParseUint(p, base, 64)
	if err != nil {
		return 0, errBadIPv4
	}
	return n, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isHex(s string) bool {
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}
