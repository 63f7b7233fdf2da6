package bluetooth

// Company IDs that matter for phone pairing.
const (
	CompanyApple   uint16 = 0x004C
	CompanySamsung uint16 = 0x0075
	CompanyGoogle  uint16 = 0x00E0
)

// LookupManufacturer returns a human-readable name for a Bluetooth SIG company ID.
// See: https://www.bluetooth.com/specifications/assigned-numbers/
func LookupManufacturer(companyID uint16) string {
	if name, ok := companyNames[companyID]; ok {
		return name
	}
	return ""
}

// Phone and wearable vendors a user is likely to pair. Anything else shows
// up unnamed unless it advertises a local name.
var companyNames = map[uint16]string{
	CompanyApple:   "Apple",
	CompanySamsung: "Samsung",
	CompanyGoogle:  "Google",
	0x0006:         "Microsoft",
	0x0310:         "Xiaomi",
	0x0157:         "Huawei",
	0x038F:         "Garmin",
	0x03DA:         "Fitbit",
	0x0060:         "Motorola",
	0x0269:         "Oura",
	0x0473:         "Withings",
	0x0171:         "Amazon",
}
