package authority

import (
	"fmt"

	clienterrors "github.com/sierraromeo/go-pbs-authority/internal/errors"
)

// medicareWeights are applied to the first eight digits of the card number.
var medicareWeights = [...]int{1, 3, 7, 9, 1, 3, 7, 9}

// ValidateMedicareNumber checks an 11-digit Medicare card number: the
// weighted sum of the first eight digits mod 10 must equal the ninth.
func ValidateMedicareNumber(cardNum string) error {
	if cardNum == "" {
		return fmt.Errorf("medicare card number is required")
	}
	if len(cardNum) != 11 {
		return fmt.Errorf("medicare card number is incorrect length")
	}
	if !allDigits(cardNum) {
		return fmt.Errorf("medicare card number must be all digits")
	}

	checksum := 0
	for i := 0; i < len(medicareWeights); i++ {
		checksum += int(cardNum[i]-'0') * medicareWeights[i]
	}
	if checksum%10 != int(cardNum[8]-'0') {
		return fmt.Errorf("medicare card number is not valid")
	}
	return nil
}

// ValidateAuthorityPrescriptionNumber checks the authority prescription
// number check digit: the first seven digits added mod 9 must equal the
// eighth. Shorter numbers are left-padded with zeros first.
func ValidateAuthorityPrescriptionNumber(scriptNum string) error {
	if scriptNum == "" {
		return fmt.Errorf("authority prescription number is required")
	}
	if !allDigits(scriptNum) {
		return fmt.Errorf("authority prescription number must be all digits")
	}
	if len(scriptNum) > 8 {
		return fmt.Errorf("authority prescription number is incorrect length")
	}
	for len(scriptNum) < 8 {
		scriptNum = "0" + scriptNum
	}

	checksum := 0
	for i := 0; i < 7; i++ { // [7] is the check digit
		checksum += int(scriptNum[i] - '0')
	}
	if checksum%9 != int(scriptNum[7]-'0') {
		return fmt.Errorf("authority prescription number is not valid")
	}
	return nil
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Validate runs the caller-side field checks that must pass before any
// network call is made. Failures wrap ErrValidation.
func (r *Request) Validate() error {
	check := func(field, problem string) error {
		return clienterrors.Wrapf(clienterrors.ErrValidation, "%s %s", field, problem)
	}

	if r.PrescriberID == "" {
		return check("prescriber number", "must be provided")
	}
	if !allDigits(r.PrescriberID) {
		return check("prescriber number", "must be all digits")
	}
	if err := ValidateAuthorityPrescriptionNumber(r.ScriptNumber); err != nil {
		return clienterrors.Wrapf(clienterrors.ErrValidation, "%v", err)
	}
	if r.PatientDetails.FirstName == "" {
		return check("patient first name", "must be provided")
	}
	if r.PatientDetails.Surname == "" {
		return check("patient surname", "must be provided")
	}
	if err := ValidateMedicareNumber(r.PatientDetails.MedicareNumber); err != nil {
		return clienterrors.Wrapf(clienterrors.ErrValidation, "%v", err)
	}
	if r.ItemDetails.ItemCode == "" {
		return check("item code", "must be provided")
	}
	return nil
}
