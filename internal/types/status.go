package types

// Status tracks the lifecycle of a database resource and determines whether
// it should be included in queries. Any change here must be reflected in the
// schema via migrations.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)

func (s Status) String() string {
	return string(s)
}
