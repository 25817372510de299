package attendance

import (
	"errors"
	"time"
)

// Role is a worker's job at the centre.
type Role string

const (
	RoleCarer     Role = "Carer"
	RoleCook      Role = "Cook"
	RoleCleaner   Role = "Cleaner"
	RoleExecutive Role = "Executive"
	RoleVolunteer Role = "Volunteer"
)

// Shift is the part of the day a worker is rostered on.
type Shift string

const (
	ShiftMorning   Shift = "Morning"
	ShiftAfternoon Shift = "Afternoon"
	ShiftOffDay    Shift = "Off Day"
)

// Status of an attendance record. Only StatusPending is assigned today.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// CenterLocationID is the fixed key of the singleton centre configuration.
const CenterLocationID = "centerLocation"

// DefaultRadiusMeters is applied when an administrator sets the centre without a radius.
const DefaultRadiusMeters = 50.0

var (
	ErrNotFound   = errors.New("not found")
	ErrInvalidPIN = errors.New("the PIN you entered is incorrect")
	ErrPINTaken   = errors.New("pin already assigned to another worker")
	ErrValidation = errors.New("validation failed")
)

// Worker is a member of staff allowed to sign in.
type Worker struct {
	ID    string `json:"id" bson:"_id"`
	Name  string `json:"name" bson:"name" validate:"required,min=2,max=50"`
	Role  Role   `json:"role" bson:"role" validate:"required,oneof=Carer Cook Cleaner Executive Volunteer"`
	Shift Shift  `json:"shift" bson:"shift" validate:"required,oneof=Morning Afternoon 'Off Day'"`
	PIN   string `json:"pin,omitempty" bson:"pin" validate:"required,len=4,number"`
}

// Public strips the PIN for unauthenticated listings.
func (w Worker) Public() Worker {
	w.PIN = ""
	return w
}

// Record is a single attendance entry. Worker details are copied at submission
// time so the record survives later edits or deletion of the worker.
type Record struct {
	ID        string    `json:"id" bson:"_id"`
	WorkerID  string    `json:"worker_id" bson:"workerId"`
	Name      string    `json:"name" bson:"name"`
	Role      Role      `json:"role" bson:"role"`
	Shift     Shift     `json:"shift" bson:"shift"`
	Notes     string    `json:"notes" bson:"notes"`
	Status    Status    `json:"status" bson:"status"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// CenterLocation is the reference point check-ins are measured against.
type CenterLocation struct {
	Lat       float64   `json:"lat" bson:"lat"`
	Lon       float64   `json:"lon" bson:"lon"`
	Radius    float64   `json:"radius" bson:"radius"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
}

// Configured reports whether the location is usable for a proximity check.
func (c *CenterLocation) Configured() bool {
	return c != nil && c.Radius > 0
}
