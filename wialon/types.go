package wialon

import (
	"encoding/json"
	"time"
)

// ItemType is the value of spec.itemsType in item searches
type ItemType string

const (
	ItemTypeUnit         ItemType = "avl_unit"
	ItemTypeUnitGroup    ItemType = "avl_unit_group"
	ItemTypeResource     ItemType = "avl_resource"
	ItemTypeUser         ItemType = "user"
	ItemTypeRetranslator ItemType = "avl_retranslator"
	ItemTypeRoute        ItemType = "avl_route"
	ItemTypeAccount      ItemType = "account"
)

// Data flags shared by all item types
const (
	FlagBase             int64 = 0x00000001
	FlagCustomProperties int64 = 0x00000002
	FlagBillingProps     int64 = 0x00000004
	FlagCustomFields     int64 = 0x00000008
	FlagImage            int64 = 0x00000010
	FlagMessages         int64 = 0x00000020
	FlagGUID             int64 = 0x00000040
	FlagAdminFields      int64 = 0x00000080
	FlagAll              int64 = 0x7fffffff
)

// Unit specific data flags
const (
	FlagUnitAdvancedProps     int64 = 0x00000100
	FlagUnitCommands          int64 = 0x00000200
	FlagUnitLastMessage       int64 = 0x00000400
	FlagUnitDriverCode        int64 = 0x00000800
	FlagUnitSensors           int64 = 0x00001000
	FlagUnitCounters          int64 = 0x00002000
	FlagUnitMaintenance       int64 = 0x00008000
	FlagUnitReportSettings    int64 = 0x00020000
	FlagUnitCommandDefinition int64 = 0x00080000
	FlagUnitProfile           int64 = 0x00800000
	FlagUnitTripDetector      int64 = 0x00400000
)

// User describes the user returned by login
type User struct {
	ID          int64           `json:"id"`
	Name        string          `json:"nm"`
	Class       int             `json:"cls"`
	CreatorID   int64           `json:"crt"`
	BillingAcct int64           `json:"bact"`
	Flags       int64           `json:"fl"`
	HostMask    string          `json:"hm"`
	Properties  json.RawMessage `json:"prp,omitempty"`
}

// LoginResponse is returned by token/login, core/use_auth_hash and core/duplicate
type LoginResponse struct {
	EID             string          `json:"eid"`
	GISSessionID    string          `json:"gis_sid"`
	Host            string          `json:"host"`
	AverageLoad     int             `json:"au"`
	ServerTime      int64           `json:"tm"`
	WSDKVersion     string          `json:"wsdk_version"`
	BaseURL         string          `json:"base_url"`
	User            User            `json:"user"`
	Features        json.RawMessage `json:"features,omitempty"`
	Classes         map[string]int  `json:"classes,omitempty"`
	VideoServiceURL string          `json:"video_service_url,omitempty"`
}

// Time returns the server time reported at login
func (r *LoginResponse) Time() time.Time {
	if r.ServerTime > 0 {
		return time.Unix(r.ServerTime, 0)
	}
	return time.Time{}
}

// Position is the last known position of a unit or the position in a message
type Position struct {
	Time       int64   `json:"t"`
	Lat        float64 `json:"y"`
	Lon        float64 `json:"x"`
	Altitude   float64 `json:"z"`
	Speed      int     `json:"s"`
	Course     int     `json:"c"`
	Satellites int     `json:"sc"`
}

// GetTime returns the position timestamp
func (p *Position) GetTime() time.Time {
	if p.Time > 0 {
		return time.Unix(p.Time, 0)
	}
	return time.Time{}
}

// Item is a generic Wialon item. Fields that depend on the requested data
// flags are kept in Raw.
type Item struct {
	ID           int64     `json:"id"`
	Name         string    `json:"nm"`
	Class        int       `json:"cls"`
	MeasureUnits int       `json:"mu"`
	UserAccess   int64     `json:"uacl"`
	HWType       int64     `json:"hw,omitempty"`
	UniqueID     string    `json:"uid,omitempty"`
	Phone        string    `json:"ph,omitempty"`
	CreatorID    int64     `json:"crt,omitempty"`
	Position     *Position `json:"pos,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the raw payload
func (i *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*i = Item(decoded)
	i.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// HasPosition checks if the item reported a position
func (i *Item) HasPosition() bool {
	return i.Position != nil
}

// SearchItemsResponse is returned by core/search_items
type SearchItemsResponse struct {
	SearchSpec      SearchSpec `json:"searchSpec"`
	DataFlags       int64      `json:"dataFlags"`
	TotalItemsCount int        `json:"totalItemsCount"`
	IndexFrom       int        `json:"indexFrom"`
	IndexTo         int        `json:"indexTo"`
	Items           []Item     `json:"items"`
}

// HasMoreItems checks if the search matched more items than were returned
func (r *SearchItemsResponse) HasMoreItems() bool {
	return r.IndexFrom+len(r.Items) < r.TotalItemsCount
}

// SearchItemResponse is returned by core/search_item
type SearchItemResponse struct {
	Item  Item  `json:"item"`
	Flags int64 `json:"flags"`
}

// CreateItemResponse is returned by core/create_* services
type CreateItemResponse struct {
	Item  Item  `json:"item"`
	Flags int64 `json:"flags"`
}

// DataFlagsUpdate is one entry of the core/update_data_flags response
type DataFlagsUpdate struct {
	ID   int64           `json:"i"`
	Data json.RawMessage `json:"d"`
}

// HWType describes a device type returned by core/get_hw_types
type HWType struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"hw_category,omitempty"`
	UID2     int    `json:"uid2,omitempty"`
}

// Message is a unit message returned by the messages/* services
type Message struct {
	Time       int64          `json:"t"`
	Flags      int64          `json:"f"`
	Type       string         `json:"tp"`
	Position   *Position      `json:"pos,omitempty"`
	Inputs     int64          `json:"i"`
	Outputs    int64          `json:"o"`
	Params     map[string]any `json:"p,omitempty"`
	LastChange int64          `json:"lc,omitempty"`
}

// GetTime returns the message timestamp
func (m *Message) GetTime() time.Time {
	return time.Unix(m.Time, 0)
}

// MessagesResponse is returned by messages/load_interval and messages/load_last
type MessagesResponse struct {
	Count    int       `json:"count"`
	Messages []Message `json:"messages"`
}

// ReportTable describes one table of an executed report
type ReportTable struct {
	Name       string   `json:"name"`
	Label      string   `json:"label"`
	Grouping   any      `json:"grouping,omitempty"`
	Flags      int64    `json:"flags"`
	Rows       int      `json:"rows"`
	Level      int      `json:"level"`
	Columns    int      `json:"columns"`
	Header     []string `json:"header"`
	HeaderType []string `json:"header_type,omitempty"`
	Total      []any    `json:"total,omitempty"`
}

// ReportResult is the result of report/exec_report
type ReportResult struct {
	MessagesRendered int             `json:"msgsRendered"`
	Stats            [][]string      `json:"stats"`
	Tables           []ReportTable   `json:"tables"`
	Attachments      json.RawMessage `json:"attachments,omitempty"`
}

// ReportRow is one row returned by report/get_result_rows
type ReportRow struct {
	Number    int               `json:"n"`
	IndexFrom int64             `json:"i1"`
	IndexTo   int64             `json:"i2"`
	TimeFrom  int64             `json:"t1"`
	TimeTo    int64             `json:"t2"`
	Depth     int               `json:"d"`
	Cells     []json.RawMessage `json:"c"`
}
