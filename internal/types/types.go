package types

import (
	"encoding/json"
	"time"
)

// ClientStatus is the pipeline stage of a prospect.
type ClientStatus string

const (
	StatusInProgress  ClientStatus = "in_progress"
	StatusNegotiating ClientStatus = "negotiating"
	StatusLost        ClientStatus = "lost"
	StatusClosed      ClientStatus = "closed"
)

// StatusAll is the filter value that matches every status.
const StatusAll = "all"

// Statuses lists every valid pipeline status in display order.
var Statuses = []ClientStatus{StatusInProgress, StatusNegotiating, StatusLost, StatusClosed}

// Default commercial terms for a newly closed project.
const (
	DefaultProjectTimeline    = 4
	DefaultProgressPercentage = 0
)

// ContactDateLayout is the calendar-date format of Client.ContactDate.
const ContactDateLayout = "2006-01-02"

// SiteType is a catalog entry describing a category of website product.
type SiteType struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	BaseValue   float64   `json:"base_value"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Project holds the commercial terms of a closed client.
// A Client carries a Project if and only if its status is closed.
type Project struct {
	Value              float64   `json:"value"`
	ProjectTimeline    int       `json:"project_timeline"`
	ProgressPercentage int       `json:"progress_percentage"`
	ClosedAt           time.Time `json:"closed_at"`
}

// Client is a prospect moving through the sales pipeline.
type Client struct {
	ID           string       `json:"id"`
	BusinessName string       `json:"business_name"`
	ContactName  string       `json:"contact_name,omitempty"`
	Phone        string       `json:"phone"`
	City         string       `json:"city"`
	ContactDate  string       `json:"contact_date"`
	Status       ClientStatus `json:"status"`
	SiteTypeID   string       `json:"site_type_id,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	Project      *Project     `json:"project,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsClosed reports whether the client has been converted into a project.
func (c *Client) IsClosed() bool {
	return c.Status == StatusClosed && c.Project != nil
}

// ContactTime parses ContactDate. The zero time is returned for malformed dates.
func (c *Client) ContactTime() time.Time {
	t, err := time.Parse(ContactDateLayout, c.ContactDate)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ClosedProject is the flattened view of a closed client and its project terms.
type ClosedProject struct {
	ID                 string       `json:"id"`
	BusinessName       string       `json:"business_name"`
	ContactName        string       `json:"contact_name,omitempty"`
	Phone              string       `json:"phone"`
	City               string       `json:"city"`
	ContactDate        string       `json:"contact_date"`
	Status             ClientStatus `json:"status"`
	SiteTypeID         string       `json:"site_type_id"`
	Notes              string       `json:"notes,omitempty"`
	Value              float64      `json:"value"`
	ProjectTimeline    int          `json:"project_timeline"`
	ProgressPercentage int          `json:"progress_percentage"`
	ClosedAt           time.Time    `json:"closed_at"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// AsClosedProject flattens a closed client. ok is false when the client has no project.
func (c *Client) AsClosedProject() (cp ClosedProject, ok bool) {
	if !c.IsClosed() {
		return ClosedProject{}, false
	}
	return ClosedProject{
		ID:                 c.ID,
		BusinessName:       c.BusinessName,
		ContactName:        c.ContactName,
		Phone:              c.Phone,
		City:               c.City,
		ContactDate:        c.ContactDate,
		Status:             c.Status,
		SiteTypeID:         c.SiteTypeID,
		Notes:              c.Notes,
		Value:              c.Project.Value,
		ProjectTimeline:    c.Project.ProjectTimeline,
		ProgressPercentage: c.Project.ProgressPercentage,
		ClosedAt:           c.Project.ClosedAt,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}, true
}

// ClientInput is the payload for creating a client.
type ClientInput struct {
	BusinessName string       `json:"business_name"`
	ContactName  string       `json:"contact_name,omitempty"`
	Phone        string       `json:"phone"`
	City         string       `json:"city"`
	ContactDate  string       `json:"contact_date"`
	Status       ClientStatus `json:"status,omitempty"`
	SiteTypeID   string       `json:"site_type_id,omitempty"`
	Notes        string       `json:"notes,omitempty"`
}

// ClientPatch is a partial client update. Nil fields are left untouched.
type ClientPatch struct {
	BusinessName *string       `json:"business_name,omitempty"`
	ContactName  *string       `json:"contact_name,omitempty"`
	Phone        *string       `json:"phone,omitempty"`
	City         *string       `json:"city,omitempty"`
	ContactDate  *string       `json:"contact_date,omitempty"`
	Status       *ClientStatus `json:"status,omitempty"`
	SiteTypeID   *string       `json:"site_type_id,omitempty"`
	Notes        *string       `json:"notes,omitempty"`
}

// ProjectTerms are optional commercial terms supplied alongside a client mutation.
// Nil fields fall back to existing values or defaults.
type ProjectTerms struct {
	Value              *float64 `json:"value,omitempty"`
	ProjectTimeline    *int     `json:"project_timeline,omitempty"`
	ProgressPercentage *int     `json:"progress_percentage,omitempty"`
}

// IsZero reports whether no term was supplied.
func (t *ProjectTerms) IsZero() bool {
	return t == nil || (t.Value == nil && t.ProjectTimeline == nil && t.ProgressPercentage == nil)
}

// SiteTypeInput is the payload for creating a site type.
type SiteTypeInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	BaseValue   float64 `json:"base_value"`
}

// SiteTypePatch is a partial site type update.
type SiteTypePatch struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	BaseValue   *float64 `json:"base_value,omitempty"`
}

// Profile is the branding and identity blob of the signed-in user.
type Profile struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	CompanyName      string    `json:"company_name,omitempty"`
	CompanyNameColor string    `json:"company_name_color,omitempty"`
	Logo             string    `json:"logo,omitempty"`
	PrimaryColor     string    `json:"primary_color,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ProfilePatch is a partial profile update.
type ProfilePatch struct {
	Name             *string `json:"name,omitempty"`
	CompanyName      *string `json:"company_name,omitempty"`
	CompanyNameColor *string `json:"company_name_color,omitempty"`
	PrimaryColor     *string `json:"primary_color,omitempty"`
}

// ChangeLogEntry represents a single entry in the activity log.
type ChangeLogEntry struct {
	Sequence   int64           `json:"sequence"`
	TableName  string          `json:"table_name"`
	EntityID   string          `json:"entity_id"`
	Operation  string          `json:"operation"` // "upsert" or "delete"
	Payload    json.RawMessage `json:"payload,omitempty"`
	SourceID   string          `json:"source_id"`
	CreatedAt  time.Time       `json:"created_at"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Operation constants
const (
	OperationUpsert = "upsert"
	OperationDelete = "delete"
)

// Change log table names.
const (
	TableClients   = "clients"
	TableSiteTypes = "site_types"
	TableProfiles  = "profiles"
)

// StoreStats holds aggregate store statistics.
type StoreStats struct {
	ClientCount   int64      `json:"client_count"`
	ClosedCount   int64      `json:"closed_count"`
	SiteTypeCount int64      `json:"site_type_count"`
	LastBackup    *time.Time `json:"last_backup"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string     `json:"status"`
	Version       string     `json:"version"`
	ClientCount   int64      `json:"client_count"`
	ClosedCount   int64      `json:"closed_count"`
	LastBackup    *time.Time `json:"last_backup"`
	SchemaVersion int64      `json:"schema_version"`
}

// BackupResponse points at the latest database backup in object storage.
type BackupResponse struct {
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at"`
	LastBackup time.Time `json:"last_backup"`
}

// StatusCount is one slice of the status distribution.
type StatusCount struct {
	Status ClientStatus `json:"status"`
	Count  int          `json:"count"`
}

// MonthBucket accumulates closed projects by contact month.
type MonthBucket struct {
	Month       string  `json:"month"` // YYYY-MM
	ClosedCount int     `json:"closed_count"`
	Revenue     float64 `json:"revenue"`
}

// SiteTypeTotal accumulates closed projects per site type.
type SiteTypeTotal struct {
	SiteTypeID string  `json:"site_type_id"`
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Value      float64 `json:"value"`
}

// Dashboard is the aggregate overview of the pipeline.
type Dashboard struct {
	TotalClients   int             `json:"total_clients"`
	ClosedClients  int             `json:"closed_clients"`
	InProgress     int             `json:"in_progress"`
	Negotiating    int             `json:"negotiating"`
	Lost           int             `json:"lost"`
	ConversionRate int             `json:"conversion_rate"`
	TotalRevenue   float64         `json:"total_revenue"`
	ByStatus       []StatusCount   `json:"by_status"`
	Monthly        []MonthBucket   `json:"monthly"`
	BySiteType     []SiteTypeTotal `json:"by_site_type"`
}

// ClosedProjectList is the closed-clients listing with the revenue of the listed rows.
type ClosedProjectList struct {
	Projects     []ClosedProject `json:"projects"`
	Total        int             `json:"total"`
	TotalRevenue float64         `json:"total_revenue"`
}

// ActivityResponse is the paged change log response.
type ActivityResponse struct {
	Entries        []ChangeLogEntry `json:"entries"`
	LatestSequence int64            `json:"latest_sequence"`
	HasMore        bool             `json:"has_more"`
}
