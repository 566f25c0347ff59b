package validation

import (
	"regexp"
	"strings"

	v "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Messages returned to callers, one per failing field.
const (
	MsgEmail     = "Email ID should not be blank & should be in valid format"
	MsgFirstName = "First Name should not be blank, have less than 250 characters and can contain only alphabets"
	MsgLastName  = "Last Name should not be blank, have less than 250 characters and can contain only alphabets"
	MsgPassword  = "Password should not be blank and have less than 250 characters"
	MsgToken     = "Token should not be blank, have less than 40 characters and should be alpha numeric"
)

const (
	maxFieldLen = 249
	maxTokenLen = 39
)

var (
	nameRegex  = regexp.MustCompile(`^[a-zA-Z]+(([',. -][a-zA-Z ])?[a-zA-Z])$`)
	tokenRegex = regexp.MustCompile(`^[A-Za-z0-9]*$`)
)

// Field names a payload field for Require.
type Field int

const (
	FieldEmail Field = iota
	FieldFirstName
	FieldLastName
	FieldPassword
	FieldToken
)

type fieldRule struct {
	field Field
	get   func(Payload) *string
	rules []v.Rule
	msg   string
}

// rules are listed in the order their messages are reported.
var fieldRules = []fieldRule{
	{FieldEmail, func(p Payload) *string { return p.EmailAddress },
		[]v.Rule{v.Required, is.EmailFormat}, MsgEmail},
	{FieldFirstName, func(p Payload) *string { return p.FirstName },
		[]v.Rule{v.Required, v.RuneLength(1, maxFieldLen), v.Match(nameRegex)}, MsgFirstName},
	{FieldLastName, func(p Payload) *string { return p.LastName },
		[]v.Rule{v.Required, v.RuneLength(1, maxFieldLen), v.Match(nameRegex)}, MsgLastName},
	{FieldPassword, func(p Payload) *string { return p.Password },
		[]v.Rule{v.Required, v.RuneLength(1, maxFieldLen)}, MsgPassword},
	{FieldToken, func(p Payload) *string { return p.Token },
		[]v.Rule{v.Required, v.RuneLength(1, maxTokenLen), v.Match(tokenRegex)}, MsgToken},
}

// Validate promotes p and checks every present field. It returns all
// failure messages in a fixed order; an empty result means p is valid.
func Validate(p Payload) []string {
	return messages(invalidFields(p.Promote()))
}

// Require reports the message of every listed field that is absent from the
// promoted payload.
func Require(p Payload, fields ...Field) []string {
	return messages(missingFields(p.Promote(), fields))
}

// Check combines Validate and Require: present fields must be valid and the
// required ones must be present. Messages keep the field order. It returns
// an *Error when anything fails.
func Check(p Payload, required ...Field) error {
	p = p.Promote()

	failed := invalidFields(p)
	for f := range missingFields(p, required) {
		failed[f] = true
	}

	if msgs := messages(failed); len(msgs) > 0 {
		return &Error{Messages: msgs}
	}
	return nil
}

func invalidFields(p Payload) map[Field]bool {
	failed := make(map[Field]bool)
	for _, fr := range fieldRules {
		if s := fr.get(p); s != nil && v.Validate(*s, fr.rules...) != nil {
			failed[fr.field] = true
		}
	}
	return failed
}

func missingFields(p Payload, fields []Field) map[Field]bool {
	missing := make(map[Field]bool)
	for _, fr := range fieldRules {
		for _, f := range fields {
			if f == fr.field && fr.get(p) == nil {
				missing[f] = true
			}
		}
	}
	return missing
}

// messages lists the message of every field in failed, in rule order.
func messages(failed map[Field]bool) []string {
	var msgs []string
	for _, fr := range fieldRules {
		if failed[fr.field] {
			msgs = append(msgs, fr.msg)
		}
	}
	return msgs
}

// Error collects every validation failure of a request.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}
