package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FormLayout names the fields, panel and banners of the case form. Values
// omitted from a layout file keep their defaults.
type FormLayout struct {
	Fields        FormFields              `yaml:"fields"`
	Organization  OrganizationFields      `yaml:"organization"`
	Person        PersonFields            `yaml:"person"`
	Panel         PanelLayout             `yaml:"panel"`
	FetchTimeout  time.Duration           `yaml:"fetch_timeout"`
	DiscardStale  bool                    `yaml:"discard_stale"`
	Notifications map[string]Notification `yaml:"notifications"`
}

type FormFields struct {
	Customer       string `yaml:"customer"`
	PrimaryContact string `yaml:"primary_contact"`
}

type OrganizationFields struct {
	PrimaryContact string `yaml:"primary_contact"`
}

type PersonFields struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Phone string `yaml:"phone"`
}

type PanelLayout struct {
	Name         string        `yaml:"name"`
	Email        string        `yaml:"email"`
	Phone        string        `yaml:"phone"`
	PollInterval time.Duration `yaml:"poll_interval"`
	// Zero waits for the panel indefinitely.
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

// Notification overrides the text or severity of one banner id.
type Notification struct {
	Message  string `yaml:"message"`
	Severity string `yaml:"severity"`
}

func DefaultFormLayout() FormLayout {
	return FormLayout{
		Fields: FormFields{
			Customer:       "customerid",
			PrimaryContact: "primarycontactid",
		},
		Organization: OrganizationFields{PrimaryContact: "primarycontactid"},
		Person: PersonFields{
			Name:  "fullname",
			Email: "emailaddress1",
			Phone: "telephone1",
		},
		Panel: PanelLayout{
			Name:         "contact_summary",
			Email:        "emailaddress1",
			Phone:        "telephone1",
			PollInterval: 500 * time.Millisecond,
		},
	}
}

// LoadFormLayout reads a YAML layout file over the defaults.
func LoadFormLayout(path string) (FormLayout, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FormLayout{}, fmt.Errorf("read form layout: %w", err)
	}
	return ParseFormLayout(raw)
}

// ParseFormLayout decodes a YAML layout over the defaults.
func ParseFormLayout(raw []byte) (FormLayout, error) {
	layout := DefaultFormLayout()
	if err := yaml.Unmarshal(raw, &layout); err != nil {
		return FormLayout{}, fmt.Errorf("parse form layout: %w", err)
	}
	return layout, layout.Validate()
}

// Validate rejects layouts the workflow cannot run with.
func (l FormLayout) Validate() error {
	var errs []error
	required := map[string]string{
		"fields.customer":              l.Fields.Customer,
		"fields.primary_contact":       l.Fields.PrimaryContact,
		"organization.primary_contact": l.Organization.PrimaryContact,
		"person.name":                  l.Person.Name,
		"panel.name":                   l.Panel.Name,
		"panel.email":                  l.Panel.Email,
		"panel.phone":                  l.Panel.Phone,
	}
	for key, v := range required {
		if v == "" {
			errs = append(errs, fmt.Errorf("form layout: %s is required", key))
		}
	}
	if l.Panel.PollInterval <= 0 {
		errs = append(errs, errors.New("form layout: panel.poll_interval must be positive"))
	}
	if l.Panel.PollTimeout < 0 || l.FetchTimeout < 0 {
		errs = append(errs, errors.New("form layout: timeouts cannot be negative"))
	}
	for id, n := range l.Notifications {
		switch n.Severity {
		case "", "ERROR", "WARNING", "INFO":
		default:
			errs = append(errs, fmt.Errorf("form layout: notification %s has unknown severity %q", id, n.Severity))
		}
	}
	return errors.Join(errs...)
}
