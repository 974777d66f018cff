package domain

// SubjectID is the stable identifier of an authenticated principal.
// Its format is controlled by the identity provider.
type SubjectID string

// RideID is the identifier of a ride draft record.
type RideID string

// ExternalID is the human-readable per-role identifier handed to users (e.g. "OGC000042").
type ExternalID string
