package billing

// CreditPack is a purchasable bundle of credits. Amounts live server
// side; clients pick a pack by id and never supply prices or credit
// counts themselves.
type CreditPack struct {
	ID          string
	DisplayName string
	Credits     int64
	PriceCents  int64
}

var Packs = map[string]*CreditPack{
	"standard": {
		ID:          "standard",
		DisplayName: "Standard",
		Credits:     20,
		PriceCents:  999,
	},
	"large": {
		ID:          "large",
		DisplayName: "Large",
		Credits:     50,
		PriceCents:  1999,
	},
}

// PackOrder defines the display ordering of packs.
var PackOrder = []string{"standard", "large"}

// GetPack returns a pack by its ID.
func GetPack(id string) *CreditPack {
	return Packs[id]
}
