package edid

import "fmt"

// Identity is the vendor block of an EDID.
type Identity struct {
	Manufacturer string `json:"manufacturer"`
	ProductCode  uint16 `json:"product_code"`
	Serial       uint32 `json:"serial"`
	Year         int    `json:"year,omitempty"`
}

func (id Identity) String() string {
	return fmt.Sprintf("%s-%04x", id.Manufacturer, id.ProductCode)
}

// ReadIdentity decodes the manufacturer ID, product code, serial number and
// year of manufacture from a valid base block.
func ReadIdentity(raw []byte) (Identity, error) {
	if err := Validate(raw); err != nil {
		return Identity{}, err
	}
	packed := uint16(raw[8])<<8 | uint16(raw[9])
	letters := []byte{
		byte('A' - 1 + (packed>>10)&0x1f),
		byte('A' - 1 + (packed>>5)&0x1f),
		byte('A' - 1 + packed&0x1f),
	}
	id := Identity{
		Manufacturer: string(letters),
		ProductCode:  uint16(raw[10]) | uint16(raw[11])<<8,
		Serial:       uint32(raw[12]) | uint32(raw[13])<<8 | uint32(raw[14])<<16 | uint32(raw[15])<<24,
	}
	if raw[17] != 0 {
		id.Year = 1990 + int(raw[17])
	}
	return id, nil
}
