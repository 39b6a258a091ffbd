package domain

import (
	"bytes"
	"encoding/json"
	"math"
)

// Variant is an optional variant discriminator such as a size. The zero value
// means "no variant" and is encoded as JSON null.
type Variant struct {
	Key   string
	Valid bool
}

// NoVariant is the absent variant.
var NoVariant = Variant{}

// VariantOf returns a present variant with the given key.
func VariantOf(key string) Variant {
	return Variant{Key: key, Valid: true}
}

// VariantFromPtr maps a nil pointer to NoVariant.
func VariantFromPtr(p *string) Variant {
	if p == nil {
		return NoVariant
	}
	return VariantOf(*p)
}

// Ptr returns nil for the absent variant.
func (v Variant) Ptr() *string {
	if !v.Valid {
		return nil
	}
	k := v.Key
	return &k
}

func (v Variant) String() string {
	if !v.Valid {
		return "<none>"
	}
	return v.Key
}

// MarshalJSON encodes the variant as a string or null.
func (v Variant) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Key)
}

// UnmarshalJSON accepts a string, a number (coerced to its text form) or null.
// Any other JSON value decodes to NoVariant.
func (v *Variant) UnmarshalJSON(data []byte) error {
	*v = variantFromRaw(data)
	return nil
}

func variantFromRaw(data []byte) Variant {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return NoVariant
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return VariantOf(s)
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		return VariantOf(n.String())
	}
	return NoVariant
}

// LineKey uniquely identifies a line within a cart.
type LineKey struct {
	ProductID string
	Variant   Variant
}

// Line is one purchasable line in the cart.
type Line struct {
	ProductID   string  `json:"id"`
	Variant     Variant `json:"size"`
	Name        string  `json:"name,omitempty"`
	Image       string  `json:"image,omitempty"`
	Category    string  `json:"category,omitempty"`
	UnitPrice   float64 `json:"price"`
	Quantity    int     `json:"qty"`
	MaxQuantity int     `json:"maxStock"`
}

// Key returns the identity of the line.
func (l Line) Key() LineKey {
	return LineKey{ProductID: l.ProductID, Variant: l.Variant}
}

// Subtotal is quantity times unit price.
func (l Line) Subtotal() float64 {
	return float64(l.Quantity) * l.UnitPrice
}

// AtLimit reports whether the line has reached its stock ceiling.
func (l Line) AtLimit() bool {
	return l.Quantity >= l.MaxQuantity
}

// Clamp bounds q to [1, MaxQuantity]. A line without a usable ceiling only
// enforces the lower bound.
func (l Line) Clamp(q int) int {
	if l.MaxQuantity >= 1 && q > l.MaxQuantity {
		q = l.MaxQuantity
	}
	if q < 1 {
		q = 1
	}
	return q
}

// Item is a catalog entry handed to the cart at add-time. A MaxQuantity of
// zero or less means the catalog did not supply a stock ceiling.
type Item struct {
	ProductID   string
	Variant     Variant
	Name        string
	Image       string
	Category    string
	UnitPrice   float64
	MaxQuantity int
}

// HasCeiling reports whether the item carries a stock ceiling.
func (i Item) HasCeiling() bool {
	return i.MaxQuantity > 0
}

// SanitizePrice maps NaN, infinities and negatives to zero.
func SanitizePrice(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0
	}
	return p
}

// TotalQuantity sums quantities across lines.
func TotalQuantity(lines []Line) int {
	var n int
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// TotalPrice sums quantity * unit price across lines.
func TotalPrice(lines []Line) float64 {
	var total float64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

// FindLine returns the index of the line matching key, or -1.
func FindLine(lines []Line, key LineKey) int {
	for i := range lines {
		if lines[i].Key() == key {
			return i
		}
	}
	return -1
}

// View is the read model handed to display layers.
type View struct {
	Partition     string  `json:"partition"`
	Items         []Line  `json:"items"`
	TotalQuantity int     `json:"totalQuantity"`
	TotalPrice    float64 `json:"totalPrice"`
}

// NewView derives the totals for lines. The slice is copied.
func NewView(partition string, lines []Line) View {
	items := make([]Line, len(lines))
	copy(items, lines)
	return View{
		Partition:     partition,
		Items:         items,
		TotalQuantity: TotalQuantity(items),
		TotalPrice:    TotalPrice(items),
	}
}

// MaxQuantity bounds every quantity and stock ceiling held in a cart.
const MaxQuantity = math.MaxInt32

// AddQuantities sums a and b, saturating at MaxQuantity.
func AddQuantities(a, b int) int {
	if a >= MaxQuantity || b >= MaxQuantity || a > MaxQuantity-b {
		return MaxQuantity
	}
	return a + b
}

// NormalizeQuantity converts an untrusted numeric quantity to an int. NaN,
// infinities and negatives become 0; fractions are truncated.
func NormalizeQuantity(q float64) int {
	if math.IsNaN(q) || math.IsInf(q, 0) || q < 0 {
		return 0
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return int(q)
}
