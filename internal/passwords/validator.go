// Package passwords implements the password strength policy applied on
// registration and password changes.
package passwords

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/ccojocar/zxcvbn-go/frequency"
)

// commonPasswordList extends zxcvbn's password frequency list with
// variants it lacks.
//
//go:embed common_passwords.txt
var commonPasswordList string

const (
	DefaultMinLength     = 8
	DefaultMaxSimilarity = 0.7
)

// Attribute is a user attribute the password must not resemble.
type Attribute struct {
	Name  string // human readable, e.g. "email address"
	Value string
}

// Validator checks passwords against length, similarity, common-password
// and all-numeric rules. It is safe for concurrent use.
type Validator struct {
	minLength     int
	maxSimilarity float64
	common        map[string]struct{}
}

// NewValidator returns a Validator with the default rules.
func NewValidator() *Validator {
	common := make(map[string]struct{})
	add := func(p string) {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			common[p] = struct{}{}
		}
	}
	for _, p := range frequency.Lists["Passwords"].List {
		add(p)
	}
	for _, line := range strings.Split(commonPasswordList, "\n") {
		add(line)
	}
	return &Validator{
		minLength:     DefaultMinLength,
		maxSimilarity: DefaultMaxSimilarity,
		common:        common,
	}
}

// Validate returns one message per violated rule, or nil if password passes.
func (v *Validator) Validate(password string, attrs ...Attribute) []string {
	var problems []string

	if n := len([]rune(password)); n < v.minLength {
		problems = append(problems, fmt.Sprintf(
			"This password is too short. It must contain at least %d characters.", v.minLength))
	}
	if name, ok := v.similarTo(password, attrs); ok {
		problems = append(problems, fmt.Sprintf("The password is too similar to the %s.", name))
	}
	if _, ok := v.common[strings.ToLower(strings.TrimSpace(password))]; ok {
		problems = append(problems, "This password is too common.")
	}
	if isNumeric(password) {
		problems = append(problems, "This password is entirely numeric.")
	}
	return problems
}

var nonWord = regexp.MustCompile(`\W+`)

func (v *Validator) similarTo(password string, attrs []Attribute) (string, bool) {
	pw := strings.ToLower(password)
	for _, attr := range attrs {
		value := strings.ToLower(attr.Value)
		if value == "" {
			continue
		}
		if v.exceedsLengthRatio(pw, value) {
			continue
		}
		parts := append(nonWord.Split(value, -1), value)
		for _, part := range parts {
			if part == "" {
				continue
			}
			if quickRatio(pw, part) >= v.maxSimilarity {
				return attr.Name, true
			}
		}
	}
	return "", false
}

// exceedsLengthRatio reports whether the password is so much longer than
// value that comparing them is meaningless.
func (v *Validator) exceedsLengthRatio(password, value string) bool {
	pwLen := float64(len([]rune(password)))
	valueLen := float64(len([]rune(value)))
	return pwLen >= 10*valueLen && valueLen < v.maxSimilarity/2*pwLen
}

// quickRatio is 2*M/T where M counts the characters the two strings share
// as multisets and T is their combined length.
func quickRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	avail := make(map[rune]int, len(rb))
	for _, r := range rb {
		avail[r]++
	}
	matches := 0
	for _, r := range ra {
		if avail[r] > 0 {
			avail[r]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(total)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
