// Package authz defines the authorization graph service contract and its
// OpenFGA-backed implementation. Relationship tuples are the unit of exchange;
// implementations absorb duplicate-write rejections so that at-least-once job
// delivery can safely re-apply a batch.
package authz

import (
	"context"
	"fmt"
)

// Tuple is a single relationship: subject has relation on object.
type Tuple struct {
	User     string
	Relation string
	Object   string
}

// ReadFilter narrows a tuple read. Empty fields match everything.
type ReadFilter struct {
	User     string
	Relation string
	Object   string
}

// Client is the call contract against the authorization graph service.
// All calls are remote and may fail transiently; implementations normalize
// SDK errors into the application's tagged error set.
type Client interface {
	// Check reports whether the subject has the relation on the object.
	Check(ctx context.Context, tuple Tuple) (bool, error)
	// WriteTuples writes the given relationship tuples in one batch. A batch
	// already applied by an earlier delivery is reported as success.
	WriteTuples(ctx context.Context, tuples []Tuple) error
	// DeleteTuples removes the given relationship tuples in one batch.
	DeleteTuples(ctx context.Context, tuples []Tuple) error
	// ReadTuples returns all tuples matching the filter, following pagination.
	ReadTuples(ctx context.Context, filter ReadFilter) ([]Tuple, error)
}

// Object reference formats shared by every caller of the graph.
const (
	userType          = "user"
	platformType      = "platform"
	artistProfileType = "artist_profile"
)

// AccountRef formats an account subject reference.
func AccountRef(accountID string) string {
	return fmt.Sprintf("%s:%s", userType, accountID)
}

// PlatformRef formats a platform-level subject reference.
func PlatformRef(name string) string {
	return fmt.Sprintf("%s:%s", platformType, name)
}

// ArtistProfileRef formats an artist profile object reference.
func ArtistProfileRef(profileID string) string {
	return fmt.Sprintf("%s:%s", artistProfileType, profileID)
}
