package validation

// Profile declares the accepted grammar for a module. Modules reference a
// profile by name instead of being special-cased by id.
type Profile struct {
	Name string `json:"name"`

	// TxLengthMin and TxLengthMax bound the hex length of transaction ids.
	TxLengthMin int `json:"tx_length_min"`
	TxLengthMax int `json:"tx_length_max"`

	// AmountAllowsZero relaxes amount checks from > 0 to >= 0 for every
	// amount task in the module.
	AmountAllowsZero bool `json:"amount_allows_zero"`

	// AddressPrefixes lists the accepted human-readable prefixes.
	AddressPrefixes []string `json:"address_prefixes"`
}

const (
	ProfileStandard  = "standard"
	ProfileLightning = "lightning"
)

var defaultPrefixes = []string{"tb1", "2", "m", "n", "lnbc"}

// StandardProfile is the testnet profile used by most modules.
func StandardProfile() Profile {
	return Profile{
		Name:            ProfileStandard,
		TxLengthMin:     64,
		TxLengthMax:     64,
		AddressPrefixes: append([]string(nil), defaultPrefixes...),
	}
}

// LightningProfile accepts shorter hex identifiers (payment hashes,
// channel ids) and zero amounts.
func LightningProfile() Profile {
	return Profile{
		Name:             ProfileLightning,
		TxLengthMin:      16,
		TxLengthMax:      64,
		AmountAllowsZero: true,
		AddressPrefixes:  append([]string(nil), defaultPrefixes...),
	}
}

// ProfileByName resolves a built-in profile.
func ProfileByName(name string) (Profile, bool) {
	switch name {
	case "", ProfileStandard:
		return StandardProfile(), true
	case ProfileLightning:
		return LightningProfile(), true
	}
	return Profile{}, false
}

// ProfileOverride replaces individual fields of a named profile.
type ProfileOverride struct {
	TxLengthMin      *int     `json:"tx_length_min,omitempty"`
	TxLengthMax      *int     `json:"tx_length_max,omitempty"`
	AmountAllowsZero *bool    `json:"amount_allows_zero,omitempty"`
	AddressPrefixes  []string `json:"address_prefixes,omitempty"`
}

// Apply returns p with the override's set fields replaced.
func (o *ProfileOverride) Apply(p Profile) Profile {
	if o == nil {
		return p
	}
	if o.TxLengthMin != nil {
		p.TxLengthMin = *o.TxLengthMin
	}
	if o.TxLengthMax != nil {
		p.TxLengthMax = *o.TxLengthMax
	}
	if o.AmountAllowsZero != nil {
		p.AmountAllowsZero = *o.AmountAllowsZero
	}
	if len(o.AddressPrefixes) > 0 {
		p.AddressPrefixes = append([]string(nil), o.AddressPrefixes...)
	}
	return p
}

func (p Profile) txBounds() (int, int) {
	lo, hi := p.TxLengthMin, p.TxLengthMax
	if lo <= 0 {
		lo = 64
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func (p Profile) prefixes() []string {
	if len(p.AddressPrefixes) == 0 {
		return defaultPrefixes
	}
	return p.AddressPrefixes
}

func (p Profile) txIsFixed() bool {
	lo, hi := p.txBounds()
	return lo == hi
}
