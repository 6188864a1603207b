package goEnroll

import (
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	maxUsernameLength = 64
	maxNameLength     = 100
	maxFieldLength    = 255
	minPhoneDigits    = 7
	maxPhoneDigits    = 15
)

var documentSides = [...]DocumentSide{DocumentFront, DocumentBack, DocumentExtra}

var civilStatuses = map[string]struct{}{
	"single":    {},
	"married":   {},
	"divorced":  {},
	"widowed":   {},
	"separated": {},
}

// DeriveUsername returns the lower-cased local part of email, or "" when email
// has no local part.
func DeriveUsername(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return ""
	}
	return strings.ToLower(email[:at])
}

func normalizeAccount(username, email, password string, derive bool) PhaseOneAccount {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" && derive {
		username = DeriveUsername(email)
	}
	return PhaseOneAccount{
		Username: username,
		Email:    email,
		Password: password,
	}
}

func validateAccount(a PhaseOneAccount) *ValidationError {
	v := &ValidationError{}

	switch {
	case a.Username == "":
		v.add("username", "required")
	case len(a.Username) > maxUsernameLength:
		v.add("username", "too long")
	case strings.IndexFunc(a.Username, unicode.IsSpace) >= 0:
		v.add("username", "must not contain whitespace")
	}

	if a.Email == "" {
		v.add("email", "required")
	} else if !validEmail(a.Email) {
		v.add("email", "invalid address")
	}

	if a.Password == "" {
		v.add("password", "required")
	}

	if v.empty() {
		return nil
	}
	return v
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && strings.Contains(addr.Address[strings.LastIndexByte(addr.Address, '@')+1:], ".")
}

// Validate checks every field against rules and reports all failures at once.
// It returns nil when details are acceptable.
func (d ProfileDetails) Validate(rules ProfileConfig) *ValidationError {
	return d.validate(rules, false, time.Now())
}

// validate checks d; a draft only checks the fields that are present.
func (d ProfileDetails) validate(rules ProfileConfig, draft bool, now time.Time) *ValidationError {
	v := &ValidationError{}

	required := func(field, value string, max int) {
		value = strings.TrimSpace(value)
		switch {
		case value == "":
			if !draft {
				v.add(field, "required")
			}
		case len(value) > max:
			v.add(field, "too long")
		}
	}
	optional := func(field, value string, max int) {
		if len(strings.TrimSpace(value)) > max {
			v.add(field, "too long")
		}
	}

	required("firstName", d.FirstName, maxNameLength)
	required("lastName", d.LastName, maxNameLength)
	optional("middleName", d.MiddleName, maxNameLength)
	required("nickName", d.NickName, maxNameLength)
	optional("address", d.Address, maxFieldLength)
	required("country", d.Country, maxNameLength)
	required("city", d.City, maxNameLength)
	optional("hobby", d.Hobby, maxFieldLength)

	if email := strings.TrimSpace(d.Email); email == "" {
		if !draft {
			v.add("email", "required")
		}
	} else if !validEmail(email) {
		v.add("email", "invalid address")
	}

	if phone := strings.TrimSpace(d.Phone); phone != "" && !validPhone(phone) {
		v.add("phone", "invalid number")
	}

	if status := strings.TrimSpace(d.CivilStatus); status == "" {
		if !draft {
			v.add("civilStatus", "required")
		}
	} else if _, ok := civilStatuses[strings.ToLower(status)]; !ok {
		v.add("civilStatus", "unknown value")
	}

	d.validateAge(v, rules, draft, now)

	if v.empty() {
		return nil
	}
	return v
}

func (d ProfileDetails) validateAge(v *ValidationError, rules ProfileConfig, draft bool, now time.Time) {
	birth := strings.TrimSpace(d.BirthDate)
	if birth == "" {
		if !draft {
			v.add("birthDate", "required")
		}
	}

	if d.Age == 0 {
		if !draft {
			v.add("age", "required")
		}
	} else if d.Age < rules.MinAge || d.Age > rules.MaxAge {
		v.add("age", "out of range")
	}

	if birth == "" {
		return
	}
	born, err := time.Parse(rules.BirthDateLayout, birth)
	if err != nil {
		v.add("birthDate", "invalid date")
		return
	}
	if born.After(now) {
		v.add("birthDate", "in the future")
		return
	}

	computed := yearsBetween(born, now)
	if computed < rules.MinAge {
		v.add("birthDate", "below minimum age")
		return
	}
	if d.Age != 0 {
		diff := computed - d.Age
		if diff < 0 {
			diff = -diff
		}
		if diff > rules.AgeTolerance {
			v.add("age", "does not match birth date")
		}
	}
}

func yearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.Month() < from.Month() || (to.Month() == from.Month() && to.Day() < from.Day()) {
		years--
	}
	return years
}

func validPhone(phone string) bool {
	digits := 0
	for i, r := range phone {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= minPhoneDigits && digits <= maxPhoneDigits
}

// normalizeDocuments fills empty sides by position and checks the document set
// against the configured bounds. The returned error wraps ErrNoDocument or
// ErrTooManyDocuments.
func normalizeDocuments(docs []DocumentRef, cfg WorkflowConfig) ([]DocumentRef, error) {
	out := make([]DocumentRef, 0, len(docs))
	v := &ValidationError{}

	for i, d := range docs {
		ref := strings.TrimSpace(d.Reference)
		if ref == "" {
			v.add("documents", "empty document reference")
			continue
		}
		side := d.Side
		if side == "" && i < len(documentSides) {
			side = documentSides[i]
		}
		out = append(out, DocumentRef{Side: side, Reference: ref})
	}
	if !v.empty() || len(out) < cfg.MinDocuments {
		v.add("documents", "at least "+strconv.Itoa(cfg.MinDocuments)+" document(s) required")
		return nil, invalid(ErrNoDocument, v)
	}
	if len(out) > cfg.MaxDocuments {
		v.add("documents", "at most "+strconv.Itoa(cfg.MaxDocuments)+" document(s) allowed")
		return nil, invalid(ErrTooManyDocuments, v)
	}

	seen := make(map[DocumentSide]bool, len(out))
	for _, d := range out {
		switch d.Side {
		case DocumentFront, DocumentBack, DocumentExtra:
		default:
			v.add("documents", "unknown side "+string(d.Side))
			return nil, invalid(ErrTooManyDocuments, v)
		}
		if seen[d.Side] {
			v.add("documents", "duplicate side "+string(d.Side))
			return nil, invalid(ErrTooManyDocuments, v)
		}
		seen[d.Side] = true
	}
	if !seen[DocumentFront] {
		v.add("documents", "front document required")
		return nil, invalid(ErrNoDocument, v)
	}

	return out, nil
}
