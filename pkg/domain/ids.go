package domain

import "github.com/google/uuid"

// Typed identifiers keep record, subject, and organization IDs from being
// swapped at call sites. Construct via uuid.New() casts; the zero value is
// the nil UUID and means "not set".
type (
	// RecordID identifies a single credential record.
	RecordID uuid.UUID

	// SubjectID identifies the employee a credential belongs to.
	SubjectID uuid.UUID

	// OrgID identifies the care provider whose workforce is being reported on.
	OrgID uuid.UUID
)

func (id RecordID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id SubjectID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id OrgID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

func (id RecordID) String() string  { return uuid.UUID(id).String() }
func (id SubjectID) String() string { return uuid.UUID(id).String() }
func (id OrgID) String() string     { return uuid.UUID(id).String() }

// Text marshalling so the IDs render as UUID strings in JSON and logs.
func (id RecordID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id SubjectID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id OrgID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }

func (id *RecordID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *SubjectID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *OrgID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseRecordID constructs a RecordID from external input.
func ParseRecordID(s string) (RecordID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return RecordID{}, err
	}
	return RecordID(u), nil
}

// ParseSubjectID constructs a SubjectID from external input.
func ParseSubjectID(s string) (SubjectID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return SubjectID{}, err
	}
	return SubjectID(u), nil
}

// ParseOrgID constructs an OrgID from external input.
func ParseOrgID(s string) (OrgID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return OrgID{}, err
	}
	return OrgID(u), nil
}
