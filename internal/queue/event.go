// Package queue carries patient audit events over RabbitMQ.  The API
// publishes one event per successful patient mutation; the audit
// consumer appends them to a JSON lines file.
package queue

import (
    "fmt"
    "time"

    "github.com/google/uuid"
)

// Action names the kind of change recorded by a PatientEvent.
type Action string

const (
    ActionCreated Action = "created"
    ActionUpdated Action = "updated"
    ActionDeleted Action = "deleted"
)

func (a Action) valid() bool {
    switch a {
    case ActionCreated, ActionUpdated, ActionDeleted:
        return true
    }
    return false
}

// PatientEvent is published after a patient record is created, updated
// or deleted.  It identifies who changed which record and when; it does
// not carry clinical data.
type PatientEvent struct {
    ID         string    `json:"event_id"`
    Action     Action    `json:"action"`
    PatientID  uint64    `json:"patient_id"`
    ActorID    uint64    `json:"actor_id"`
    ActorRole  string    `json:"actor_role"`
    OccurredAt time.Time `json:"occurred_at"`
}

// NewPatientEvent stamps a new event with a random id and the current time.
func NewPatientEvent(action Action, patientID, actorID uint64, actorRole string) PatientEvent {
    return PatientEvent{
        ID:         uuid.NewString(),
        Action:     action,
        PatientID:  patientID,
        ActorID:    actorID,
        ActorRole:  actorRole,
        OccurredAt: time.Now().UTC(),
    }
}

func (e PatientEvent) validate() error {
    if !e.Action.valid() {
        return fmt.Errorf("unknown action %q", e.Action)
    }
    if e.PatientID == 0 {
        return fmt.Errorf("missing patient_id")
    }
    return nil
}
