package adapter

import (
	"regexp"
	"strings"

	"pingpoint/internal/domain"
)

var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})$`)

func isValidMAC(mac string) bool {
	return macPattern.MatchString(mac)
}

// parseARPTable parses `show arp` output:
//
//	IP address       HW type     HW address           Flags Mask            Iface
//	192.168.1.10     0x1         AA:BB:CC:DD:EE:FF    C                     eth1
func parseARPTable(output string) []domain.DiscoveryRecord {
	var records []domain.DiscoveryRecord
	for _, line := range dataLines(output) {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		mac := fields[3]
		if mac == "<incomplete>" || !isValidMAC(mac) {
			continue
		}
		records = append(records, domain.DiscoveryRecord{IP: fields[0], MAC: mac})
	}
	return records
}

// parseDHCPLeases parses `show dhcp leases` output. The separator row under
// the header fails MAC validation and is dropped with the other junk. Client
// names may contain spaces; "?" means the client sent none.
//
//	IP address      Hardware Address   Lease expiration     Pool       Client Name
//	----------      ----------------   ------------------   ----       -----------
//	192.168.1.10    aa:bb:cc:dd:ee:ff  2025/06/23 04:14:37  LAN_POOL   test-device
func parseDHCPLeases(output string) []domain.DiscoveryRecord {
	var records []domain.DiscoveryRecord
	for _, line := range dataLines(output) {
		fields := strings.Fields(line)
		// ip, mac, date, time, pool
		if len(fields) < 5 || !isValidMAC(fields[1]) {
			continue
		}
		rec := domain.DiscoveryRecord{IP: fields[0], MAC: fields[1], Subnet: fields[4]}
		if len(fields) > 5 && fields[5] != "?" {
			rec.Hostname = strings.Join(fields[5:], " ")
		}
		records = append(records, rec)
	}
	return records
}

// dataLines splits command output and drops the header row
func dataLines(output string) []string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) <= 1 {
		return nil
	}
	return lines[1:]
}

// mergeRouterRecords keeps the first record seen for each MAC. Later
// records only fill in fields the first one left empty, so a lease hostname
// still lands on a host that was also in the ARP table.
func mergeRouterRecords(groups ...[]domain.DiscoveryRecord) []domain.DiscoveryRecord {
	index := make(map[string]int)
	var out []domain.DiscoveryRecord
	for _, group := range groups {
		for _, rec := range group {
			key := domain.NormalizeMAC(rec.MAC)
			i, ok := index[key]
			if !ok {
				index[key] = len(out)
				out = append(out, rec)
				continue
			}
			first := &out[i]
			if first.IP == "" {
				first.IP = rec.IP
			}
			if first.Hostname == "" {
				first.Hostname = rec.Hostname
			}
			if first.Subnet == "" {
				first.Subnet = rec.Subnet
			}
		}
	}
	return out
}
