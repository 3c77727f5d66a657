package domain

// DiscoveryRecord is one host as reported by a scan adapter.
// Only MAC is required; adapters do not need to canonicalize or de-duplicate.
type DiscoveryRecord struct {
	MAC      string `json:"mac"`
	IP       string `json:"ip,omitempty"`
	Vendor   string `json:"vendor,omitempty"`
	Hostname string `json:"hostname,omitempty"`
	Subnet   string `json:"subnet,omitempty"`
}

// MergedRecord is the union of every record a batch carried for one MAC
type MergedRecord struct {
	MAC      string
	IPs      []string
	Vendor   string
	Hostname string
	Subnet   string
}

// MergeRecords drops records without a MAC, canonicalizes the rest and folds
// duplicates together. The first non-empty value wins per field and every
// distinct IP is kept in order of appearance. Output order follows the first
// appearance of each MAC.
func MergeRecords(records []DiscoveryRecord) []MergedRecord {
	index := make(map[string]int, len(records))
	merged := make([]MergedRecord, 0, len(records))

	for _, rec := range records {
		mac := NormalizeMAC(rec.MAC)
		if mac == "" {
			continue
		}

		i, ok := index[mac]
		if !ok {
			i = len(merged)
			index[mac] = i
			merged = append(merged, MergedRecord{MAC: mac})
		}
		m := &merged[i]

		if rec.IP != "" && !containsString(m.IPs, rec.IP) {
			m.IPs = append(m.IPs, rec.IP)
		}
		if m.Vendor == "" {
			m.Vendor = rec.Vendor
		}
		if m.Hostname == "" {
			m.Hostname = rec.Hostname
		}
		if m.Subnet == "" {
			m.Subnet = rec.Subnet
		}
	}

	return merged
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
