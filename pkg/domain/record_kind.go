package domain

import dErrors "caseintake/pkg/domain-errors"

// RecordKind is the entity type of a customer-style record.
// Invariant: the value is one of the supported kinds.
//
// Values follow the record service's entity logical names so they can be sent
// on the wire unchanged.
type RecordKind string

const (
	KindOrganization RecordKind = "account"
	KindPerson       RecordKind = "contact"
	KindCase         RecordKind = "incident"
)

var customerKinds = map[RecordKind]bool{
	KindOrganization: true,
	KindPerson:       true,
}

// ParseCustomerKind constructs a customer RecordKind from external input.
//
// Errors: CodeInvalidInput when the value is empty or not a customer kind.
func ParseCustomerKind(s string) (RecordKind, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "record kind cannot be empty")
	}
	k := RecordKind(s)
	if !k.IsCustomer() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "record kind must be account or contact")
	}
	return k, nil
}

// IsCustomer reports whether the kind can be linked as a case customer.
func (k RecordKind) IsCustomer() bool {
	return customerKinds[k]
}

func (k RecordKind) String() string {
	return string(k)
}
