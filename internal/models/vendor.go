package models

import "fmt"

// PBXVendor identifies one of the supported PBX platforms.
type PBXVendor string

const (
	VendorThreeCX PBXVendor = "threecx"
	VendorYeastar PBXVendor = "yeastar"
)

// Vendors lists every supported vendor in a stable order.
func Vendors() []PBXVendor {
	return []PBXVendor{VendorThreeCX, VendorYeastar}
}

// ParseVendor validates a vendor selector from user input (route params,
// WebSocket query strings, config files).
func ParseVendor(s string) (PBXVendor, error) {
	switch PBXVendor(s) {
	case VendorThreeCX, VendorYeastar:
		return PBXVendor(s), nil
	}
	return "", fmt.Errorf("unknown PBX vendor %q", s)
}

// PBXConnectionConfig describes how to reach one vendor's API. At most one
// config per vendor may be active at a time; the store enforces this.
type PBXConnectionConfig struct {
	Vendor    PBXVendor `json:"vendor" validate:"required,oneof=threecx yeastar"`
	ServerURL string    `json:"server_url" validate:"required,url"`
	APIKey    string    `json:"api_key" validate:"required"`
	Extension string    `json:"extension,omitempty"`
	Port      int       `json:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	VerifyTLS bool      `json:"verify_tls"`
	Enabled   bool      `json:"enabled"`
	Active    bool      `json:"active"`
}
