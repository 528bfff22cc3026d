package shipapi

import "github.com/eraiiz/shipping/internal/models"

// ValidateAddress checks the fields the rate API requires. It is a plain
// presence check: no email or phone format validation happens on this side.
func ValidateAddress(a models.Address) (bool, []string) {
	var errs []string
	if a.ContactName == "" {
		errs = append(errs, "Contact name is required")
	}
	if a.Phone == "" {
		errs = append(errs, "Phone number is required")
	}
	if a.Email == "" {
		errs = append(errs, "Email is required")
	}
	if a.Street == "" {
		errs = append(errs, "Street address is required")
	}
	if a.City == "" {
		errs = append(errs, "City is required")
	}
	if a.State == "" {
		errs = append(errs, "State is required")
	}
	if a.PostalCode == "" {
		errs = append(errs, "Postal code is required")
	}
	return len(errs) == 0, errs
}
