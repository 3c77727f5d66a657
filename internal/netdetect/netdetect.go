// Package netdetect finds the private IPv4 subnets this host is attached to.
// It supplies nmap sweep targets when none are configured.
package netdetect

import (
	"fmt"
	"net"
	"sort"
	"strings"
)

// virtualPrefixes are interface names created by container runtimes and CNI plugins
var virtualPrefixes = []string{"veth", "docker", "br-", "cni", "flannel", "virbr"}

// Interface is the subset of net.Interface needed for detection
type Interface struct {
	Name  string
	Flags net.Flags
	Addrs []net.Addr
}

// PrivateSubnets returns the RFC1918 subnets of every up, non-loopback,
// non-virtual interface in CIDR form, sorted and deduplicated.
func PrivateSubnets() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	candidates := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		candidates = append(candidates, Interface{Name: iface.Name, Flags: iface.Flags, Addrs: addrs})
	}
	return Subnets(candidates), nil
}

// Subnets applies the detection rules to an explicit interface list
func Subnets(ifaces []Interface) []string {
	seen := make(map[string]struct{})
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 || isVirtual(iface.Name) {
			continue
		}
		for _, addr := range iface.Addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil || !ip4.IsPrivate() {
				continue
			}
			ones, bits := ipnet.Mask.Size()
			// Point-to-point links and oversized masks are not sweep targets
			if bits != 32 || ones < 16 || ones > 30 {
				continue
			}
			seen[fmt.Sprintf("%s/%d", ip4.Mask(ipnet.Mask), ones)] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for subnet := range seen {
		out = append(out, subnet)
	}
	sort.Strings(out)
	return out
}

func isVirtual(name string) bool {
	for _, prefix := range virtualPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
