package validation

import (
	"fmt"
	"sort"

	"signup/internal/registration/models"
	dErrors "signup/pkg/domain-errors"
)

// Result accumulates rejection reasons per field.
type Result struct {
	Fields map[string][]string `json:"fields,omitempty"`
}

func (r *Result) add(field, reason string) {
	if r.Fields == nil {
		r.Fields = make(map[string][]string)
	}
	r.Fields[field] = append(r.Fields[field], reason)
}

// OK reports whether every rule accepted its field.
func (r Result) OK() bool {
	return len(r.Fields) == 0
}

// FieldNames returns the rejected fields in stable order.
func (r Result) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Err returns a CodeValidation error describing the first rejected field,
// or nil when the result is OK.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	first := r.FieldNames()[0]
	return dErrors.New(dErrors.CodeValidation, r.Fields[first][0])
}

type fieldRules struct {
	field string
	rules []Rule
}

// Validator runs the rule set of each form.
type Validator struct {
	primary      []fieldRules
	supplemental []fieldRules
	byField      map[string][]Rule
}

// Option configures a Validator.
type Option func(*config)

type config struct {
	countryCode string
}

// WithCountryCode sets the dialing code accepted in the +<cc> phone form.
func WithCountryCode(code string) Option {
	return func(c *config) {
		c.countryCode = code
	}
}

// New builds the validator for both forms.
func New(opts ...Option) *Validator {
	cfg := &config{countryCode: DefaultCountryCode}
	for _, opt := range opts {
		opt(cfg)
	}

	v := &Validator{
		primary: []fieldRules{
			{models.FieldName, []Rule{Required("name is required")}},
			{models.FieldEmail, []Rule{
				Required("email is required"),
				EmailPattern("email must look like name@example.com"),
			}},
			{models.FieldPhone, []Rule{
				Required("phone is required"),
				PhonePattern(cfg.countryCode, fmt.Sprintf("phone must be a mobile number like 09xxxxxxxxx or +%s9xxxxxxxxx", cfg.countryCode)),
			}},
			{models.FieldRole, []Rule{
				Required("role is required"),
				OneOf(models.Roles, "role must be one of: "+joinSet(models.Roles)),
			}},
			{models.FieldUniversity, []Rule{Required("university is required")}},
		},
		supplemental: []fieldRules{
			{models.FieldMajor, []Rule{Required("field of study is required")}},
			{models.FieldEducationLevel, []Rule{
				Required("education level is required"),
				OneOf(models.EducationLevels, "education level must be one of: "+joinSet(models.EducationLevels)),
			}},
		},
	}
	v.byField = make(map[string][]Rule)
	for _, fr := range append(append([]fieldRules{}, v.primary...), v.supplemental...) {
		v.byField[fr.field] = fr.rules
	}
	return v
}

// Check runs the rules of a single field. Unknown fields are accepted.
func (v *Validator) Check(field, value string) (reason string, ok bool) {
	for _, rule := range v.byField[field] {
		if reason, ok := rule(value); !ok {
			return reason, false
		}
	}
	return "", true
}

// ValidateRegistration trims in place and checks every primary field.
func (v *Validator) ValidateRegistration(in *models.RegistrationInput) Result {
	Sanitize(in)
	return run(v.primary, map[string]string{
		models.FieldName:       in.Name,
		models.FieldEmail:      in.Email,
		models.FieldPhone:      in.Phone,
		models.FieldRole:       in.Role,
		models.FieldUniversity: in.University,
	})
}

// ValidateSupplemental trims in place and checks every supplemental field.
// previousExperience is optional and usedServiceBefore is a plain boolean.
func (v *Validator) ValidateSupplemental(in *models.SupplementalInput) Result {
	Sanitize(in)
	return run(v.supplemental, map[string]string{
		models.FieldMajor:          in.Major,
		models.FieldEducationLevel: in.EducationLevel,
	})
}

func run(set []fieldRules, values map[string]string) Result {
	var res Result
	for _, fr := range set {
		for _, rule := range fr.rules {
			if reason, ok := rule(values[fr.field]); !ok {
				res.add(fr.field, reason)
			}
		}
	}
	return res
}
