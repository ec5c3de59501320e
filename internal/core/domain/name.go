package domain

// PersonName is a parsed name query. LastName is always present.
type PersonName struct {
	LastName   string
	FirstName  string
	Patronymic string
}

// HasFirstName reports whether the query carried a given name.
func (n PersonName) HasFirstName() bool {
	return n.FirstName != ""
}

// VariantOptions gates the optional name variants.
type VariantOptions struct {
	// IncludeInitials adds "f. last".
	IncludeInitials bool

	// IncludeFemaleForms adds the "…ко" → "…ка" surname form.
	IncludeFemaleForms bool

	// IncludeReversed adds "last, first".
	IncludeReversed bool
}

// VariantOrder tells the matcher which token of a variant comes first.
type VariantOrder int

const (
	// SurnameOnly matches a single surname token.
	SurnameOnly VariantOrder = iota

	// SurnameFirst matches "surname given".
	SurnameFirst

	// GivenFirst matches "given surname".
	GivenFirst
)

// NameVariant is one lowercase search form of a name.
type NameVariant struct {
	// Text is the display form, e.g. "шевченко тарас".
	Text string

	// Surname and Given are the lowercase tokens the matcher compares.
	Surname string
	Given   string

	// Order is the token order of Text.
	Order VariantOrder

	// InitialOnly marks variants whose given token is a single initial.
	InitialOnly bool
}
