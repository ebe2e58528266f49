package services

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"backend/internal/errors"
	"backend/internal/models/enums"
)

var nonDigit = regexp.MustCompile(`[^0-9]`)

// AccessKeyInput carries the fields the authority's access-key algorithm
// combines into the 48-digit base before the check digit is appended.
type AccessKeyInput struct {
	EmissionDate  time.Time // interpreted in America/Guayaquil
	DocumentType  enums.DocumentType
	RUC           string
	Environment   enums.Environment
	EstabAndPoint string // 6 digits: 3-digit establishment + 3-digit emission point
	Sequential    int64  // padded to 9 digits
	NumericCode   string // optional; 8 digits. Generated if empty.
}

const tipoEmisionNormal = "1"

// BuildAccessKey constructs the 49-digit SRI access key: an 8-digit date,
// 2-digit document type, 13-digit RUC, 1-digit environment, 6-digit
// establishment+point, 9-digit sequential, 8-digit numeric code, 1-digit
// emission-type, and a modulo-11 check digit over all of the above.
func BuildAccessKey(in AccessKeyInput) (string, error) {
	loc, err := time.LoadLocation("America/Guayaquil")
	if err != nil {
		loc = time.FixedZone("ECT", -5*60*60)
	}
	emissionDate := in.EmissionDate.In(loc)

	ruc := onlyDigits(in.RUC)
	if len(ruc) != 13 {
		return "", errors.ErrValidationFailed.WithMessage("RUC must be 13 digits for access-key construction")
	}

	estabPoint := onlyDigits(in.EstabAndPoint)
	if len(estabPoint) != 6 {
		return "", errors.ErrValidationFailed.WithMessage("establishment+point code must be 6 digits")
	}

	numericCode := onlyDigits(in.NumericCode)
	if numericCode == "" {
		numericCode = fmt.Sprintf("%02d%02d%02d%02d",
			emissionDate.Hour(), emissionDate.Minute(), emissionDate.Second(),
			(emissionDate.Nanosecond()/1e7)%100)
	}
	if len(numericCode) != 8 {
		return "", errors.ErrValidationFailed.WithMessage("numeric code must be 8 digits")
	}

	base := fmt.Sprintf("%s%s%s%s%s%s%s%s",
		emissionDate.Format("02012006"),
		string(in.DocumentType),
		ruc,
		string(in.Environment),
		estabPoint,
		padLeft(strconv.FormatInt(in.Sequential, 10), 9),
		numericCode,
		tipoEmisionNormal,
	)

	if len(base) != 48 || nonDigit.MatchString(base) {
		return "", errors.ErrInvalidAccessKey.WithMessage(
			fmt.Sprintf("access-key base must be 48 digits, got %d: %q", len(base), base))
	}

	check, err := modulo11CheckDigit(base)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInvalidAccessKey)
	}

	key := base + strconv.Itoa(check)
	if len(key) != 49 || nonDigit.MatchString(key) {
		return "", errors.ErrInvalidAccessKey.WithMessage("constructed access key is not 49 digits")
	}

	return key, nil
}

// modulo11CheckDigit applies weights cycling 2..7 from right to left over
// digits, then folds the weighted sum per the authority's rule: v = 11 -
// (sum mod 11); 11 maps to 0, 10 maps to 1.
func modulo11CheckDigit(digits string) (int, error) {
	sum := 0
	weight := 2
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if d < 0 || d > 9 {
			return 0, fmt.Errorf("non-digit character in access-key base at position %d", i)
		}
		sum += d * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}

	v := 11 - (sum % 11)
	switch v {
	case 11:
		return 0, nil
	case 10:
		return 1, nil
	default:
		return v, nil
	}
}

// VerifyAccessKey reports whether key is 49 digits whose 49th digit is the
// valid modulo-11 check digit of the first 48.
func VerifyAccessKey(key string) bool {
	if len(key) != 49 || nonDigit.MatchString(key) {
		return false
	}
	want, err := modulo11CheckDigit(key[:48])
	if err != nil {
		return false
	}
	got := int(key[48] - '0')
	return want == got
}

func onlyDigits(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

func padLeft(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}
