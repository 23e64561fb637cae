package leads

import (
	"strings"
	"unicode/utf8"

	"github.com/askservice/leadmarket-backend/pkg/types"
)

const (
	nameMask  = "***"
	phoneMask = " *******"
	emailMask = "*******"
)

// MaskContact returns a display copy of c with identifying parts hidden.
// The input is never modified.
func MaskContact(c types.ContactSnapshot) types.ContactSnapshot {
	return types.ContactSnapshot{
		FirstName:  maskName(c.FirstName),
		LastName:   maskName(c.LastName),
		ClientType: c.ClientType,
		Phone:      maskPhone(c.Phone),
		Email:      maskEmail(c.Email),
	}
}

func maskName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(r) + nameMask
}

func maskPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	return prefix(phone, 3) + phoneMask
}

func maskEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return prefix(email, 2) + emailMask
	}
	return prefix(email[:at], 2) + emailMask + email[at:]
}

func prefix(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
