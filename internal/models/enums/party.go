package enums

import "strings"

// UserRole represents the role of a staff user inside an issuer account.
// The invoicing surface only needs three: who can change billing structure,
// who can issue documents, and who can only look.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleOperator UserRole = "operator"
	RoleViewer   UserRole = "viewer"
)

// IsValid checks if the user role is valid.
func (ur UserRole) IsValid() bool {
	switch ur {
	case RoleAdmin, RoleOperator, RoleViewer:
		return true
	}
	return false
}

// String returns the string representation of the user role.
func (ur UserRole) String() string {
	return string(ur)
}

// MarshalText implements encoding.TextMarshaler for JSON serialization.
func (ur UserRole) MarshalText() ([]byte, error) {
	return []byte(ur.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON deserialization.
func (ur *UserRole) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "admin":
		*ur = RoleAdmin
	case "operator":
		*ur = RoleOperator
	case "viewer":
		*ur = RoleViewer
	default:
		*ur = ""
	}
	return nil
}

// TaxpayerRegime distinguishes the SRI fiscal regime an issuer files under,
// which changes which XML fields (infoAdicional blocks, RISE flags) the
// XML assembler must populate.
type TaxpayerRegime string

const (
	RegimeGeneral     TaxpayerRegime = "general"
	RegimeRIMPE       TaxpayerRegime = "rimpe"
	RegimeMicroempresa TaxpayerRegime = "rimpe_microempresa"
)
