package webhook

import (
	"regexp"
	"strings"

	"lotshoppr_backend/internal/leads/domain"
)

// ExtractFields performs best-effort field extraction from a flat label to
// value map. It uses label matching to identify common fields across forms
// whose question keys we do not know.
func ExtractFields(data map[string]string) domain.FormFields {
	var result domain.FormFields

	for key, value := range data {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		k := strings.ToLower(strings.TrimSpace(key))

		switch {
		case matchesAny(k, firstNamePatterns):
			result.FirstName = value
		case matchesAny(k, lastNamePatterns):
			result.LastName = value
		case matchesAny(k, fullNamePatterns):
			parts := strings.SplitN(value, " ", 2)
			result.FirstName = parts[0]
			if len(parts) > 1 {
				result.LastName = parts[1]
			}
		case matchesAny(k, emailPatterns):
			if emailRegex.MatchString(value) {
				result.Email = value
			}
		case matchesAny(k, phonePatterns):
			result.Phone = value
		case matchesAny(k, zipCodePatterns):
			result.Zip = value
		case matchesAny(k, yearPatterns):
			result.Year = value
		case matchesAny(k, makePatterns):
			result.Make = value
		case matchesAny(k, modelPatterns):
			result.Model = value
		case matchesAny(k, trimPatterns):
			result.Trim = value
		case matchesAny(k, colorPatterns):
			result.Color = value
		case matchesAny(k, interiorPatterns):
			result.Interior = value
		case matchesAny(k, dealTypePatterns):
			result.DealType = NormalizeDealType(value)
		case matchesAny(k, cashMaxPatterns):
			result.CashMax = value
		}
	}

	// A full name typed into the first-name box
	if result.FirstName != "" && result.LastName == "" && strings.Contains(result.FirstName, " ") {
		parts := strings.SplitN(result.FirstName, " ", 2)
		result.FirstName = parts[0]
		result.LastName = parts[1]
	}

	return result
}

// IsIncomplete returns true if minimum required fields (a name, an email and
// a vehicle make or model) are missing.
func IsIncomplete(f domain.FormFields) bool {
	hasName := f.FirstName != "" || f.LastName != ""
	hasVehicle := f.Make != "" || f.Model != ""
	return !hasName || f.Email == "" || !hasVehicle
}

// NormalizeDealType maps free-form answers onto the three deal types.
// Unrecognized answers are kept verbatim so they can be reviewed.
func NormalizeDealType(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	switch {
	case v == "":
		return ""
	case strings.Contains(v, "lease"):
		return domain.DealTypeLease
	case strings.Contains(v, "financ"), strings.Contains(v, "loan"):
		return domain.DealTypeFinance
	case strings.Contains(v, "cash"):
		return domain.DealTypeCash
	default:
		return strings.TrimSpace(value)
	}
}

// Field label patterns
var (
	firstNamePatterns = []string{"first_name", "firstname", "first name", "given_name", "givenname", "fname"}
	lastNamePatterns  = []string{"last_name", "lastname", "last name", "family_name", "familyname", "surname", "lname"}
	fullNamePatterns  = []string{"name", "full_name", "fullname", "your_name", "your name"}
	emailPatterns     = []string{"email", "e-mail", "e_mail", "emailaddress", "email_address", "mail"}
	phonePatterns     = []string{"phone", "tel", "telephone", "phonenumber", "phone_number", "mobile", "cell"}
	zipCodePatterns   = []string{"zip", "zipcode", "zip_code", "postal_code", "postalcode", "zip code", "postal code"}
	yearPatterns      = []string{"year", "model year", "model_year"}
	makePatterns      = []string{"make", "brand", "manufacturer"}
	modelPatterns     = []string{"model", "vehicle model"}
	trimPatterns      = []string{"trim", "trim level", "package"}
	colorPatterns     = []string{"color", "colour", "exterior color", "exterior colour", "exterior"}
	interiorPatterns  = []string{"interior", "interior color", "interior colour"}
	dealTypePatterns  = []string{"deal type", "deal_type", "dealtype", "payment type", "how will you pay", "purchase type"}
	cashMaxPatterns   = []string{"max cash price", "cash max", "max out the door", "budget", "cash budget"}
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var labelNormalizer = strings.NewReplacer("-", "", "_", "", " ", "", "?", "")

func matchesAny(label string, patterns []string) bool {
	// Normalize: strip spaces, dashes, underscores for fuzzy matching
	normalized := labelNormalizer.Replace(label)
	for _, p := range patterns {
		if normalized == labelNormalizer.Replace(p) {
			return true
		}
	}
	return false
}
