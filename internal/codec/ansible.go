package codec

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"pingpoint/internal/domain"
)

// AnsibleCodec writes an Ansible YAML inventory of reachable devices
type AnsibleCodec struct{}

// NewAnsibleCodec creates a new Ansible codec
func NewAnsibleCodec() *AnsibleCodec {
	return &AnsibleCodec{}
}

// Format returns the codec format identifier
func (c *AnsibleCodec) Format() string {
	return "ansible-inventory"
}

// ContentType returns the MIME type of the output
func (c *AnsibleCodec) ContentType() string {
	return "application/x-yaml"
}

// ansibleInventory represents the Ansible inventory structure
type ansibleInventory struct {
	All ansibleGroup `yaml:"all"`
}

type ansibleGroup struct {
	Children map[string]ansibleGroupDef `yaml:"children,omitempty"`
}

type ansibleGroupDef struct {
	Hosts map[string]ansibleHost `yaml:"hosts,omitempty"`
}

type ansibleHost struct {
	AnsibleHost string                 `yaml:"ansible_host,omitempty"`
	Vars        map[string]interface{} `yaml:",inline"`
}

var nonIdentifier = regexp.MustCompile(`[^a-z0-9_]+`)

// groupName turns a category such as "Storage Device" into storage_device
func groupName(category string) string {
	name := strings.Trim(nonIdentifier.ReplaceAllString(strings.ToLower(category), "_"), "_")
	if name == "" {
		return "ungrouped"
	}
	return name
}

// hostName is the inventory key: the friendly name if it is usable, else the MAC
func hostName(d domain.Device) string {
	name := strings.Trim(nonIdentifier.ReplaceAllString(strings.ToLower(d.FriendlyName), "-"), "-")
	if name == "" || d.HasDefaultName() {
		name = strings.ToLower(strings.ReplaceAll(d.MAC, ":", ""))
	}
	return name
}

// Export groups devices by category. Devices without a usable address are
// left out since Ansible cannot reach them.
func (c *AnsibleCodec) Export(devices []domain.Device, w io.Writer) error {
	inv := ansibleInventory{
		All: ansibleGroup{
			Children: make(map[string]ansibleGroupDef),
		},
	}

	for _, d := range devices {
		ip := d.LatestIP()
		if !domain.UsableIP(ip) {
			continue
		}

		group := groupName(d.Category)
		def, ok := inv.All.Children[group]
		if !ok {
			def = ansibleGroupDef{Hosts: make(map[string]ansibleHost)}
			inv.All.Children[group] = def
		}

		vars := map[string]interface{}{
			"mac":    d.MAC,
			"status": string(d.Status),
		}
		if d.Vendor != "" {
			vars["vendor"] = d.Vendor
		}

		name := hostName(d)
		if _, taken := def.Hosts[name]; taken {
			name = name + "-" + strings.ToLower(strings.ReplaceAll(d.MAC, ":", ""))
		}
		def.Hosts[name] = ansibleHost{AnsibleHost: ip, Vars: vars}
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&inv); err != nil {
		return fmt.Errorf("failed to encode Ansible inventory: %w", err)
	}

	return nil
}
