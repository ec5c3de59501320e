package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/logger"
)

// excerptRunes is the maximum excerpt length attached to a text match.
const excerptRunes = 200

// tokenSplit separates words the same way for every cached text.
var tokenSplit = regexp.MustCompile(`[\s,.;!?]+`)

// SplitAlternatives splits a query listing alternative names separated by "/".
func SplitAlternatives(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, "/") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseQuery splits a name query by whitespace token count:
// 1 token is a surname, 2 are surname and given name, 3 or more add the
// patronymic. Tokens beyond the third are dropped.
func ParseQuery(raw string) (domain.PersonName, error) {
	parts := strings.Fields(raw)
	switch len(parts) {
	case 0:
		return domain.PersonName{}, fmt.Errorf("%w: empty name", domain.ErrInvalidQuery)
	case 1:
		return domain.PersonName{LastName: parts[0]}, nil
	case 2:
		return domain.PersonName{LastName: parts[0], FirstName: parts[1]}, nil
	default:
		if len(parts) > 3 {
			logger.Debug("Dropping extra name tokens: %v", parts[3:])
		}
		return domain.PersonName{LastName: parts[0], FirstName: parts[1], Patronymic: parts[2]}, nil
	}
}

// ParseQueries parses every "/"-separated alternative of a raw query.
// Unparseable alternatives are skipped; no parseable alternative at all is an
// ErrInvalidQuery.
func ParseQueries(raw string) ([]domain.PersonName, error) {
	var names []domain.PersonName
	for _, alt := range SplitAlternatives(raw) {
		name, err := ParseQuery(alt)
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidQuery, raw)
	}
	return names, nil
}

// GenerateVariants expands a name into lowercase search forms.
// "last first" and "first last" are always produced when both parts exist;
// initials, the female surname form and the reversed comma form are gated by
// opts.
func GenerateVariants(name domain.PersonName, opts domain.VariantOptions) []domain.NameVariant {
	last := strings.ToLower(strings.TrimSpace(name.LastName))
	first := strings.ToLower(strings.TrimSpace(name.FirstName))
	if last == "" {
		return nil
	}

	surnames := []string{last}
	if opts.IncludeFemaleForms {
		if f, ok := femaleSurname(last); ok {
			surnames = append(surnames, f)
		}
	}

	var out []domain.NameVariant
	seen := make(map[string]struct{})
	add := func(v domain.NameVariant) {
		if _, ok := seen[v.Text]; ok {
			return
		}
		seen[v.Text] = struct{}{}
		out = append(out, v)
	}

	for _, sn := range surnames {
		if first == "" {
			add(domain.NameVariant{Text: sn, Surname: sn, Order: domain.SurnameOnly})
			continue
		}
		add(domain.NameVariant{Text: sn + " " + first, Surname: sn, Given: first, Order: domain.SurnameFirst})
		add(domain.NameVariant{Text: first + " " + sn, Surname: sn, Given: first, Order: domain.GivenFirst})
		if opts.IncludeInitials {
			ini := firstRunes(first, 1)
			add(domain.NameVariant{
				Text:        ini + ". " + sn,
				Surname:     sn,
				Given:       ini,
				Order:       domain.GivenFirst,
				InitialOnly: true,
			})
		}
		if opts.IncludeReversed {
			add(domain.NameVariant{Text: sn + ", " + first, Surname: sn, Given: first, Order: domain.SurnameFirst})
		}
	}
	return out
}

// femaleSurname maps a "…ко" surname to its "…ка" form.
func femaleSurname(last string) (string, bool) {
	if !strings.HasSuffix(last, "ко") || last == "ко" {
		return "", false
	}
	return strings.TrimSuffix(last, "ко") + "ка", true
}

// MatchText reports the first variant found in text together with an excerpt
// of the text around it.
//
// The surname must equal a whole token. For surname-first variants the token
// right after it must be the given name, its single-letter initial, or start
// with its first two letters; a surname that ends the text also matches.
// For given-first variants the given token must be exact (or the initial) and
// the next token the surname. Only adjacent token pairs are considered.
func MatchText(text string, variants []domain.NameVariant) (domain.NameVariant, string, bool) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return domain.NameVariant{}, "", false
	}
	for _, v := range variants {
		if matchVariant(tokens, v) {
			return v, Excerpt(text, v), true
		}
	}
	return domain.NameVariant{}, "", false
}

func matchVariant(tokens []string, v domain.NameVariant) bool {
	for i, tok := range tokens {
		switch v.Order {
		case domain.SurnameOnly:
			if tok == v.Surname {
				return true
			}
		case domain.SurnameFirst:
			if tok != v.Surname {
				continue
			}
			if i+1 == len(tokens) || givenMatches(tokens[i+1], v.Given) {
				return true
			}
		case domain.GivenFirst:
			if i+1 == len(tokens) || tokens[i+1] != v.Surname {
				continue
			}
			if tok == v.Given || (!v.InitialOnly && isInitialOf(tok, v.Given)) {
				return true
			}
		}
	}
	return false
}

// givenMatches accepts the exact given name, its initial, or a token sharing
// its first two letters (a three-letter prefix implies the two-letter one).
func givenMatches(tok, given string) bool {
	if tok == given || isInitialOf(tok, given) {
		return true
	}
	if len([]rune(given)) < 2 {
		return false
	}
	return strings.HasPrefix(tok, firstRunes(given, 2))
}

func isInitialOf(tok, given string) bool {
	return len([]rune(tok)) == 1 && tok == firstRunes(given, 1)
}

func tokenize(text string) []string {
	var out []string
	for _, tok := range tokenSplit.Split(strings.ToLower(text), -1) {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) < n {
		return s
	}
	return string(r[:n])
}

// Excerpt returns up to 200 runes of text around the first occurrence of the
// variant's surname, or the head of the text when it is not found.
func Excerpt(text string, v domain.NameVariant) string {
	orig := []rune(strings.TrimSpace(text))
	if len(orig) <= excerptRunes {
		return string(orig)
	}
	lower := make([]rune, len(orig))
	for i, r := range orig {
		lower[i] = unicode.ToLower(r)
	}
	start := indexRunes(lower, []rune(v.Surname))
	if start < 0 {
		return string(orig[:excerptRunes])
	}
	start -= excerptRunes / 4
	if start < 0 {
		start = 0
	}
	end := start + excerptRunes
	if end > len(orig) {
		end = len(orig)
		start = end - excerptRunes
	}
	return string(orig[start:end])
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
