package index

// AllBlocs is the id of the "Global" sentinel bloc. Selecting it means no
// bloc filter is active.
const AllBlocs = "all"

// NeutralBlocColor is used for bloc-tinted elements when more than one bloc
// (or none) is active.
const NeutralBlocColor = "#7f8ea3"

// DefaultSectorColor is the brand color for sectors missing from
// [SectorColors].
const DefaultSectorColor = "#e8453c"

// Bloc is one entry of the fixed trade-bloc catalog. Members are declared
// iso2 codes; the index intersects them with the dataset's countries.
type Bloc struct {
	ID      string
	Name    string
	Color   string
	Members []string
}

// Catalog lists every known trade bloc in display order. The order is
// significant: a country's bloc list and its resolved bloc color follow it.
var Catalog = []Bloc{
	{ID: AllBlocs, Name: "Global", Color: "#666666"},
	{ID: "eu", Name: "EU", Color: "#4c88cc", Members: []string{
		"AT", "BE", "BG", "HR", "CY", "CZ", "DK", "EE", "FI", "FR", "DE", "GR", "HU", "IE",
		"IT", "LV", "LT", "LU", "MT", "NL", "PL", "PT", "RO", "SK", "SI", "ES", "SE",
	}},
	{ID: "nato", Name: "NATO", Color: "#7f8ea3", Members: []string{
		"AL", "BE", "BG", "CA", "HR", "CZ", "DK", "EE", "FI", "FR", "DE", "GR", "HU", "IS",
		"IT", "LV", "LT", "LU", "ME", "NL", "MK", "NO", "PL", "PT", "RO", "SK", "SI", "ES",
		"SE", "TR", "GB", "US",
	}},
	{ID: "mercosur", Name: "MERCOSUR", Color: "#4caf50", Members: []string{"AR", "BR", "PY", "UY", "BO"}},
	{ID: "asean", Name: "ASEAN", Color: "#f7b731", Members: []string{
		"BN", "KH", "ID", "LA", "MY", "MM", "PH", "SG", "TH", "VN",
	}},
	{ID: "gcc", Name: "GCC", Color: "#9b7ad8", Members: []string{"BH", "KW", "OM", "QA", "SA", "AE"}},
	{ID: "usmca", Name: "USMCA", Color: "#ff9f43", Members: []string{"US", "CA", "MX"}},
	{ID: "brics", Name: "BRICS", Color: "#e8453c", Members: []string{
		"BR", "RU", "IN", "CN", "ZA", "SA", "AE", "EG", "ET", "IR",
	}},
	{ID: "afcfta", Name: "AfCFTA", Color: "#2a9d8f", Members: []string{
		"DZ", "AO", "BJ", "BW", "BF", "BI", "CM", "CV", "CF", "TD", "KM", "CG", "CI", "CD",
		"DJ", "EG", "GQ", "ER", "SZ", "ET", "GA", "GM", "GH", "GN", "GW", "KE", "LS", "LR",
		"LY", "MG", "MW", "ML", "MR", "MU", "MA", "MZ", "NA", "NE", "NG", "RW", "ST", "SN",
		"SC", "SL", "SO", "ZA", "SS", "SD", "TZ", "TG", "TN", "UG", "ZM", "ZW",
	}},
	{ID: "cptpp", Name: "CPTPP", Color: "#00acc1", Members: []string{
		"AU", "BN", "CA", "CL", "JP", "MY", "MX", "NZ", "PE", "SG", "VN", "GB",
	}},
	{ID: "rcep", Name: "RCEP", Color: "#26a69a", Members: []string{
		"AU", "BN", "KH", "CN", "ID", "JP", "KR", "LA", "MY", "MM", "NZ", "PH", "SG", "TH", "VN",
	}},
	{ID: "eaeu", Name: "EAEU", Color: "#8d6e63", Members: []string{"AM", "BY", "KZ", "KG", "RU"}},
	{ID: "saarc", Name: "SAARC", Color: "#5c6bc0", Members: []string{"AF", "BD", "BT", "IN", "MV", "NP", "PK", "LK"}},
	{ID: "caricom", Name: "CARICOM", Color: "#26c6da", Members: []string{
		"AG", "BS", "BB", "BZ", "DM", "GD", "GY", "HT", "JM", "KN", "LC", "VC", "SR", "TT",
	}},
	{ID: "apec", Name: "APEC", Color: "#42a5f5", Members: []string{
		"AU", "BN", "CA", "CL", "CN", "HK", "ID", "JP", "KR", "MY", "MX", "NZ", "PG", "PE",
		"PH", "RU", "SG", "TW", "TH", "US", "VN",
	}},
	{ID: "oecd", Name: "OECD", Color: "#90a4ae", Members: []string{
		"AU", "AT", "BE", "CA", "CL", "CO", "CR", "CZ", "DK", "EE", "FI", "FR", "DE", "GR",
		"HU", "IS", "IE", "IL", "IT", "JP", "KR", "LV", "LT", "LU", "MX", "NL", "NZ", "NO",
		"PL", "PT", "SK", "SI", "ES", "SE", "CH", "TR", "GB", "US",
	}},
	{ID: "g7", Name: "G7", Color: "#ffca28", Members: []string{"CA", "FR", "DE", "IT", "JP", "GB", "US"}},
	{ID: "g20", Name: "G20", Color: "#ffb300", Members: []string{
		"AR", "AU", "BR", "CA", "CN", "FR", "DE", "IN", "ID", "IT", "JP", "KR", "MX", "RU",
		"SA", "ZA", "TR", "GB", "US",
	}},
}

// KnownBloc reports whether id is in the catalog (including "all").
func KnownBloc(id string) bool {
	for _, b := range Catalog {
		if b.ID == id {
			return true
		}
	}
	return false
}

// SectorColors holds each sector's brand color.
var SectorColors = map[string]string{
	"medicine":    "#e8453c",
	"electronics": "#4c88cc",
	"automotive":  "#ff9f43",
	"energy":      "#8f6a48",
	"agriculture": "#4caf50",
	"textiles":    "#9b7ad8",
	"metals":      "#7f8ea3",
	"chemicals":   "#f7b731",
}

// SectorColor returns the brand color of a sector id.
func SectorColor(id string) string {
	if c, ok := SectorColors[id]; ok {
		return c
	}
	return DefaultSectorColor
}
