package partitioning

import (
	"errors"
	"fmt"
)

var (
	// ErrWayOutOfRange is returned when a configured way is not in
	// [0, associativity).
	ErrWayOutOfRange = errors.New("way index out of range")

	// ErrCapacityOutOfRange is returned when a capacity fraction is not in
	// [0, 1].
	ErrCapacityOutOfRange = errors.New("capacity fraction out of range")

	// ErrDuplicatePartition is returned when a partition is configured more
	// than once in the same policy.
	ErrDuplicatePartition = errors.New("duplicate partition entry")

	// ErrInvalidGeometry is returned when associativity, cache size and block
	// size do not describe a valid cache.
	ErrInvalidGeometry = errors.New("invalid cache geometry")

	// ErrUnknownKind is returned for policy kinds that do not exist.
	ErrUnknownKind = errors.New("unknown partitioning policy kind")
)

// A ConfigurationError rejects a policy configuration before any policy is
// created.
type ConfigurationError struct {
	Policy       string
	Partition    PartitionID
	HasPartition bool
	Detail       string
	Err          error
}

func (e *ConfigurationError) Error() string {
	msg := e.Policy + ": " + e.Err.Error()

	if e.HasPartition {
		msg += fmt.Sprintf(" (partition %d)", e.Partition)
	}

	if e.Detail != "" {
		msg += ": " + e.Detail
	}

	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func geometryError(policy, detail string) error {
	return &ConfigurationError{
		Policy: policy,
		Detail: detail,
		Err:    ErrInvalidGeometry,
	}
}

func partitionError(
	policy string,
	id PartitionID,
	err error,
	format string,
	args ...any,
) error {
	return &ConfigurationError{
		Policy:       policy,
		Partition:    id,
		HasPartition: true,
		Detail:       fmt.Sprintf(format, args...),
		Err:          err,
	}
}

// ViolationKind tells which runtime invariant has been broken.
type ViolationKind int

const (
	// ViolationUnderflow means a partition released more blocks than it
	// held.
	ViolationUnderflow ViolationKind = iota

	// ViolationUnapprovedAllocation means an allocation was reported that
	// FilterCandidates would not have approved.
	ViolationUnapprovedAllocation
)

func (k ViolationKind) String() string {
	switch k {
	case ViolationUnderflow:
		return "underflow"
	case ViolationUnapprovedAllocation:
		return "unapproved_allocation"
	default:
		return fmt.Sprintf("ViolationKind(%d)", int(k))
	}
}

// An InvariantViolation signals that the cache and the policy disagree about
// what is stored in the cache. After a violation, the usage counters of the
// policy are suspect.
type InvariantViolation struct {
	Policy    string
	Partition PartitionID
	Way       int
	Kind      ViolationKind
}

func (v *InvariantViolation) Error() string {
	return fmt.Sprintf(
		"%s: invariant violation %s: partition %d, way %d",
		v.Policy, v.Kind, v.Partition, v.Way)
}
