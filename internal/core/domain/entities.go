package domain

import (
	"time"
)

// Office is a physical site that owns readers and geofences and to which
// assets are assigned.
type Office struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Location  GeoPoint  `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

// Asset is a tracked physical item. ExpectedOfficeID and RfidTagID may be
// empty; both are owned by the CRUD side and only read here.
type Asset struct {
	ID               string    `json:"id"`
	AssetCode        string    `json:"asset_code"`
	Name             string    `json:"name"`
	ExpectedOfficeID string    `json:"expected_office_id,omitempty"`
	RfidTagID        string    `json:"rfid_tag_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// RfidTag is a physical tag identified by its EPC. A tag belongs to at most
// one asset at a time; that constraint is enforced by the assignment owner,
// not by this engine.
type RfidTag struct {
	ID        string    `json:"id"`
	EPC       string    `json:"epc"`
	TagType   string    `json:"tag_type,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// RfidReader is a fixed reader. Its coordinate approximates the location of
// any tag it detects; detection events carry no GPS fix of their own.
type RfidReader struct {
	ID        string     `json:"id"`
	ReaderID  string     `json:"reader_id"`
	Name      string     `json:"name"`
	OfficeID  string     `json:"office_id"`
	Location  GeoPoint   `json:"location"`
	Status    string     `json:"status"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Geofence is a circular boundary owned by an office. Center is a required,
// dedicated field; it is never derived from the office's own coordinate.
type Geofence struct {
	ID           string    `json:"id"`
	OfficeID     string    `json:"office_id"`
	Name         string    `json:"name"`
	Center       GeoPoint  `json:"center"`
	RadiusMeters float64   `json:"radius_meters"`
	AlertOnEntry bool      `json:"alert_on_entry"`
	AlertOnExit  bool      `json:"alert_on_exit"`
	CreatedAt    time.Time `json:"created_at"`
}

// DetectionEvent is the atomic input to the engine: one tag sighting by one
// reader. ReceivedOrder is a monotonic ingest sequence used to break
// timestamp ties deterministically.
type DetectionEvent struct {
	ID            string    `json:"id"`
	TagID         string    `json:"tag_id"`
	ReaderID      string    `json:"reader_id"`
	DetectedAt    time.Time `json:"detected_at"`
	RSSI          *int      `json:"rssi,omitempty"`
	ReceivedOrder int64     `json:"received_order"`
}

// DetectionReport is the ingestion boundary payload: what a reader (or the
// gateway in front of it) reports per sighting, before any identity has been
// resolved.
type DetectionReport struct {
	EPC        string    `json:"epc"`
	ReaderID   string    `json:"reader_id"`
	DetectedAt time.Time `json:"detected_at"`
	RSSI       *int      `json:"rssi,omitempty"`
}

// ContainmentState is the engine's only mutable persistent state: the last
// known inside/outside verdict per (asset, geofence) pair. Created lazily on
// first evaluation, updated on every subsequent one, never deleted while the
// asset or geofence exists.
type ContainmentState struct {
	AssetID           string    `json:"asset_id"`
	GeofenceID        string    `json:"geofence_id"`
	IsInside          bool      `json:"is_inside"`
	LastEvaluatedAt   time.Time `json:"last_evaluated_at"`
	LastReceivedOrder int64     `json:"last_received_order"`
}

// AlertType is the closed set of transition kinds.
type AlertType string

const (
	AlertEntry AlertType = "entry"
	AlertExit  AlertType = "exit"
)

// Alert records an entry or exit transition that passed the geofence's
// alert configuration. Append-only; duplicate suppression is the consumer's
// problem.
type Alert struct {
	ID             string    `json:"id"`
	Type           AlertType `json:"type"`
	AssetID        string    `json:"asset_id"`
	GeofenceID     string    `json:"geofence_id"`
	DistanceMeters float64   `json:"distance_meters"`
	OccurredAt     time.Time `json:"occurred_at"`
	SourceEventID  string    `json:"source_event_id"`
	Message        string    `json:"message,omitempty"`
}

// Violation is a derived record: an asset whose latest recent detection came
// from a reader in an office other than the asset's expected office. Never
// persisted; recomputed on every scan.
type Violation struct {
	AssetID          string    `json:"asset_id"`
	AssetCode        string    `json:"asset_code"`
	AssetName        string    `json:"asset_name"`
	ExpectedOfficeID string    `json:"expected_office_id"`
	DetectedOfficeID string    `json:"detected_office_id"`
	DetectedAt       time.Time `json:"detected_at"`
	ReaderID         string    `json:"reader_id"`
}

// ResolvedContext is what the identity resolver hands to the geofence
// stages: only the fields they need, not the full object graph.
type ResolvedContext struct {
	Asset            *Asset
	ExpectedOfficeID string
	ReaderOfficeID   string
	ReaderLocation   GeoPoint
	Geofences        []Geofence
}

// Containment is the result of evaluating one coordinate against one
// geofence.
type Containment struct {
	GeofenceID     string  `json:"geofence_id"`
	IsInside       bool    `json:"is_inside"`
	DistanceMeters float64 `json:"distance_meters"`
}

// TransitionKind is what the tracker decided for one evaluation.
type TransitionKind int

const (
	// TransitionNone covers both the first-ever observation for a pair and
	// an evaluation that matched the stored state.
	TransitionNone TransitionKind = iota
	TransitionEntry
	TransitionExit
)

// Transition pairs a tracker decision with the evaluation that produced it.
type Transition struct {
	Kind        TransitionKind
	AssetID     string
	GeofenceID  string
	Containment Containment
	OccurredAt  time.Time
}

// IngestOutcome describes how far an event made it through the pipeline.
type IngestOutcome string

const (
	// OutcomeEvaluated means the event ran the full geofence pipeline.
	OutcomeEvaluated IngestOutcome = "evaluated"
	// OutcomeUnassigned means the event was recorded but its tag has no
	// asset, so no geofence evaluation happened. Not an error.
	OutcomeUnassigned IngestOutcome = "unassigned"
	// OutcomeStale means every evaluation for the event was older than the
	// stored state and was dropped.
	OutcomeStale IngestOutcome = "stale"
)

// IngestResult is returned to the caller of the ingestion pipeline.
type IngestResult struct {
	EventID string        `json:"event_id"`
	Outcome IngestOutcome `json:"outcome"`
	Alerts  []Alert       `json:"alerts,omitempty"`
}
