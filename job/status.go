package job

import "fmt"

// Status represents the current lifecycle state of a Job.
//
// The state machine is:
//
//	Pending    -> Processing
//	Processing -> Done
//	Processing -> Pending    (retry, attempts remaining)
//	Processing -> Failed     (retry limit exceeded)
//	Pending    -> Cancelled  (operator bulk cancel)
//
// Done, Failed, and Cancelled are all terminal. Failed is recoverable via
// an explicit retry (resets to Pending); Cancelled is not — it is modeled
// as a distinct terminal state from Failed rather than overloading Failed
// with a synthetic error_trace, per the scheduler's resolution of the
// "cancel state" open question.
//
// Unknown is reserved as the zero value, used by store queries to mean
// "no status filter".
type Status uint8

const (
	// Unknown represents an unspecified status. It is the zero value and
	// is interpreted by store.ListByStatus as "all statuses".
	Unknown Status = iota

	// Pending indicates the job is eligible for leasing.
	Pending

	// Processing indicates the job is currently owned by a worker under
	// an active lease.
	Processing

	// Done indicates successful, terminal completion.
	Done

	// Failed indicates the retry limit was exceeded. Recoverable via an
	// explicit retry.
	Failed

	// Cancelled indicates the job was removed from scheduling by an
	// operator while still Pending. Terminal and not retry-recoverable
	// through normal retry; re-ingesting the same config_name resets it.
	Cancelled
)

func statusToString(s Status) string {
	switch s {
	case Pending:
		return "pending"
	case Processing:
		return "processing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func statusFromString(s string) (Status, error) {
	switch s {
	case "pending":
		return Pending, nil
	case "processing":
		return Processing, nil
	case "done":
		return Done, nil
	case "failed":
		return Failed, nil
	case "cancelled":
		return Cancelled, nil
	case "unknown", "":
		return Unknown, nil
	default:
		return 0, fmt.Errorf("unknown status: %s", s)
	}
}

// ParseStatus converts a string representation of a status into a Status
// value. An error is returned for unrecognized strings.
func ParseStatus(s string) (Status, error) {
	return statusFromString(s)
}

// IsTerminal reports whether the status cannot transition further without
// an explicit operator action (retry or re-ingestion).
func (s Status) IsTerminal() bool {
	return s == Done || s == Failed || s == Cancelled
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(statusToString(s)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	status, err := statusFromString(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// String returns the canonical lowercase string representation of the
// status, matching the wire/API representation.
func (s Status) String() string {
	return statusToString(s)
}
