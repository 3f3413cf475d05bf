package domain

import "time"

// Work order status values. The tool schemas expose these as an enum; the
// validators reject anything else.
const (
	StatusPending    = "Pendiente"
	StatusInProgress = "En Proceso"
	StatusCompleted  = "Completado"
	StatusCancelled  = "Cancelado"
)

// CropUnspecified is the default crop when the message does not mention one.
const CropUnspecified = "Sin especificar"

// User is a tenant owner. UserID on every other entity refers to User.ID.
type User struct {
	ID     int64
	Name   string
	Email  string
	Phone  string
	Role   string
	Active bool
}

type Field struct {
	ID       int64
	UserID   int64
	Name     string
	Hectares float64
	Details  string
}

type Client struct {
	ID      int64
	UserID  int64
	Name    string
	Email   string
	Phone   string
	Address string
	TaxID   string
	Notes   string
}

type Personnel struct {
	ID            int64
	UserID        int64
	Name          string
	NationalID    string
	Phone         string
	TotalHectares float64
	HoursWorked   float64
}

type WorkType struct {
	ID   int64
	Name string
}

type WorkOrder struct {
	ID         int64
	UserID     int64
	WorkTypeID int64
	WorkType   string // resolved name, filled on read
	FieldID    int64
	FieldName  string // resolved name, filled on read
	Crop       string
	StartDate  time.Time
	EndDate    *time.Time
	Status     string
	Client     string
	Notes      string
}

type Cost struct {
	ID            int64
	UserID        int64
	Amount        float64
	Date          time.Time
	Payee         string
	Description   string
	Category      string
	PaymentMethod string
	Paid          bool
}

// WorkAssignment links personnel to a work order with the hectares they
// logged on it.
type WorkAssignment struct {
	WorkOrderID   int64
	PersonnelID   int64
	PersonnelName string // resolved name, filled on read
	Hectares      float64
	Hours         float64
}
