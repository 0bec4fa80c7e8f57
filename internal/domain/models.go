package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID identifies a record. The backing service uses integer keys but some
// endpoints hand them back as strings, so both decode to the same value.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s", string(b))
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

type ResourceType string

const (
	ResourceEvents ResourceType = "events"
	ResourceUsers  ResourceType = "users"
)

type Operation string

const (
	OpToggleStatus Operation = "toggle_status"
	OpChangeRole   Operation = "change_role"
	OpDelete       Operation = "delete"
)

// Field returns the record field confirmed by the server for a mutation.
func (o Operation) Field() string {
	switch o {
	case OpToggleStatus:
		return "status"
	case OpChangeRole:
		return "role"
	default:
		return ""
	}
}

// Destructive operations need an explicit confirmation before any call is made.
func (o Operation) Destructive() bool {
	return o == OpDelete || o == OpChangeRole
}

type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
)

func (s *EventStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = EventStatus(strings.ToLower(strings.TrimSpace(raw)))
	return nil
}

func (s EventStatus) Valid() bool {
	return s == EventStatusDraft || s == EventStatusPublished
}

// Toggled returns the opposite publication state.
func (s EventStatus) Toggled() EventStatus {
	if s == EventStatusPublished {
		return EventStatusDraft
	}
	return EventStatusPublished
}

type Role string

const (
	RoleAttendee  Role = "attendee"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

var Roles = []Role{RoleAttendee, RoleOrganizer, RoleAdmin}

func (r *Role) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Role(strings.ToLower(strings.TrimSpace(raw)))
	return nil
}

func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// closedFields are the record fields restricted to a fixed set of values.
var closedFields = []string{"status", "role"}

// ValidFieldValue reports whether value is allowed for field. Fields without
// a closed value set accept anything.
func ValidFieldValue(field, value string) bool {
	switch field {
	case "status":
		return EventStatus(value).Valid()
	case "role":
		return Role(value).Valid()
	}
	return true
}

// CheckClosedFields returns the first closed-set field of rec holding a value
// outside its set. Unset fields pass.
func CheckClosedFields(rec Record) (string, bool) {
	for _, f := range closedFields {
		if v := rec.Field(f); v != "" && !ValidFieldValue(f, v) {
			return f, false
		}
	}
	return "", true
}

// Record is anything the collection cache can hold.
// Field is total: unknown or unset fields read as "".
type Record interface {
	RecordID() ID
	Field(name string) string
}

// Entity is a Record that can produce an updated copy of itself.
type Entity[T any] interface {
	Record
	WithField(name, value string) T
}

type Event struct {
	ID          ID          `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Date        string      `json:"date"`
	Time        string      `json:"time"`
	Location    string      `json:"location"`
	TicketType  string      `json:"ticket_type"`
	Price       *float64    `json:"price,omitempty"`
	MaxQuantity *int        `json:"max_quantity,omitempty"`
	Status      EventStatus `json:"status"`
	OrganizerID ID          `json:"organizer_id,omitempty"`
	Image       string      `json:"image,omitempty"`
}

func (e Event) RecordID() ID { return e.ID }

func (e Event) Field(name string) string {
	switch name {
	case "id":
		return string(e.ID)
	case "title":
		return e.Title
	case "description":
		return e.Description
	case "category":
		return e.Category
	case "date":
		return e.Date
	case "time":
		return e.Time
	case "location":
		return e.Location
	case "ticket_type":
		return e.TicketType
	case "status":
		return string(e.Status)
	case "organizer_id":
		return string(e.OrganizerID)
	case "image":
		return e.Image
	case "price":
		if e.Price == nil {
			return ""
		}
		return strconv.FormatFloat(*e.Price, 'f', -1, 64)
	case "max_quantity":
		if e.MaxQuantity == nil {
			return ""
		}
		return strconv.Itoa(*e.MaxQuantity)
	}
	return ""
}

func (e Event) WithField(name, value string) Event {
	switch name {
	case "title":
		e.Title = value
	case "description":
		e.Description = value
	case "category":
		e.Category = value
	case "date":
		e.Date = value
	case "time":
		e.Time = value
	case "location":
		e.Location = value
	case "ticket_type":
		e.TicketType = value
	case "status":
		e.Status = EventStatus(strings.ToLower(value))
	case "image":
		e.Image = value
	}
	return e
}

type User struct {
	ID         ID     `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Role       Role   `json:"role"`
	IsVerified bool   `json:"is_verified"`
}

func (u User) RecordID() ID { return u.ID }

func (u User) Field(name string) string {
	switch name {
	case "id":
		return string(u.ID)
	case "username":
		return u.Username
	case "email":
		return u.Email
	case "phone":
		return u.Phone
	case "role":
		return string(u.Role)
	case "is_verified":
		return strconv.FormatBool(u.IsVerified)
	}
	return ""
}

func (u User) WithField(name, value string) User {
	switch name {
	case "username":
		u.Username = value
	case "email":
		u.Email = value
	case "phone":
		u.Phone = value
	case "role":
		u.Role = Role(strings.ToLower(value))
	}
	return u
}

// Collection is the single list shape handed downstream of the gateway,
// whatever envelope the backing service used.
type Collection[T any] struct {
	Items []T `json:"items"`
}

// ListFilters are the server-side filters forwarded on a list fetch.
type ListFilters struct {
	Status   string
	Category string
	Limit    int
}

// FilterState is the active set of predicates of one view. Empty fields match everything.
type FilterState struct {
	Query      string `json:"q,omitempty" yaml:"q"`
	Category   string `json:"category,omitempty" yaml:"category"`
	Status     string `json:"status,omitempty" yaml:"status"`
	Role       string `json:"role,omitempty" yaml:"role"`
	TicketType string `json:"ticket_type,omitempty" yaml:"ticket_type"`
}

func (f FilterState) IsZero() bool {
	return strings.TrimSpace(f.Query) == "" &&
		f.Category == "" && f.Status == "" && f.Role == "" && f.TicketType == ""
}

// Equalities lists the equality filters keyed by record field name.
func (f FilterState) Equalities() map[string]string {
	return map[string]string{
		"category":    f.Category,
		"status":      f.Status,
		"role":        f.Role,
		"ticket_type": f.TicketType,
	}
}

// Page is what a renderer receives: one bounded slice of the filtered cache.
type Page[T any] struct {
	Items       []T    `json:"items"`
	CurrentPage int    `json:"current_page"`
	TotalPages  int    `json:"total_pages"`
	TotalCount  int    `json:"total_count"`
	PageSize    int    `json:"page_size"`
	Empty       bool   `json:"empty"`
	Error       string `json:"error,omitempty"`
}

type Metrics struct {
	Totals     MetricTotals   `json:"totals"`
	Timeseries Timeseries     `json:"timeseries"`
	Categories map[string]int `json:"categories"`
}

type MetricTotals struct {
	Users       int     `json:"users"`
	Organizers  int     `json:"organizers"`
	Events      int     `json:"events"`
	Published   int     `json:"published"`
	TicketsSold int     `json:"ticketsSold"`
	Revenue     float64 `json:"revenue"`
}

type Timeseries struct {
	Days     []string `json:"days"`
	Signups  []int    `json:"signups"`
	Bookings []int    `json:"bookings"`
}

type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
}

type NotificationKind string

const (
	NotifyInfo  NotificationKind = "info"
	NotifyError NotificationKind = "error"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}
