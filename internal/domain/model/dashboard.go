// Package model contains domain models passed between layers.
// Field names mirror the JSON payloads of the backend /api surface.
package model

import "encoding/json"

// Stats is the dashboard summary returned by GET /stats.
type Stats struct {
	TotalCount        int64        `json:"total_count"`
	OKCount           int64        `json:"ok_count"`
	NOKCount          int64        `json:"nok_count"`
	AlarmCount        int64        `json:"alarm_count"`
	CraftDistribution []CraftCount `json:"craft_distribution"`
	Trend             Trend        `json:"trend"`
}

// CraftCount is the number of results for one craft type.
type CraftCount struct {
	CraftType Scalar `json:"craft_type"`
	Count     int64  `json:"count"`
}

// Trend holds daily result counts for the last seven days.
type Trend struct {
	Dates  []string `json:"dates"`
	Counts []int64  `json:"counts"`
}

// Page is a paged list envelope. Device sub-lists only fill Items and Total.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page,omitempty"`
	PageSize int   `json:"page_size,omitempty"`
}

// Result is one process result row.
type Result struct {
	ID           int64  `json:"id"`
	CycleNumber  Scalar `json:"cyclenumber"`
	DeviceName   string `json:"device_name,omitempty"`
	CraftType    Scalar `json:"craft_type"`
	BSN          Scalar `json:"bsn"`
	VIN          Scalar `json:"vin,omitempty"`
	ProgramID    Scalar `json:"program_id,omitempty"`
	ResultStatus *int   `json:"result_status"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time,omitempty"`
	CycleTime    Scalar `json:"cycle_time,omitempty"`
	KeyValue     Scalar `json:"key_value"`
}

// OK reports whether the result passed. Unknown status counts as not OK.
func (r Result) OK() bool {
	return r.ResultStatus != nil && *r.ResultStatus == 1
}

// ResultDetail is returned by GET /results/{id}. The backend answers unknown
// ids with 200 and only Error set.
type ResultDetail struct {
	Result
	SystemID     Scalar `json:"system_id"`
	ProgramVerID Scalar `json:"program_ver_id"`
	StatusCode   Scalar `json:"status_code"`
	Error        string `json:"error,omitempty"`
}

// Found reports whether the backend located the result.
func (d ResultDetail) Found() bool {
	return d.Error == ""
}

// Step is one step of a result.
type Step struct {
	ID          int64  `json:"id"`
	StepIndex   int    `json:"step_index"`
	StepName    string `json:"step_name"`
	StepResult  Scalar `json:"step_result"`
	StepValue   Scalar `json:"step_value"`
	TargetValue Scalar `json:"target_value"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

// Curve is one recorded curve of a result step.
type Curve struct {
	ID         int64           `json:"id"`
	Step       Scalar          `json:"step"`
	CurveType  Scalar          `json:"curve_type"`
	StartTime  string          `json:"start_time"`
	EndTime    string          `json:"end_time"`
	DataPoints json.RawMessage `json:"data_points"`
}

// Alarm is one alarm row. DeviceID is only set by the device alarm list.
type Alarm struct {
	ID            int64  `json:"id"`
	ResultID      *int64 `json:"result_id"`
	StepID        *int64 `json:"step_id,omitempty"`
	AlarmCode     Scalar `json:"alarm_code"`
	AlarmLevel    Scalar `json:"alarm_level"`
	AlarmMsg      string `json:"alarm_msg"`
	ParentAlarmID *int64 `json:"parent_alarm_id,omitempty"`
	CreateTime    string `json:"create_time"`
	DeviceID      string `json:"device_id,omitempty"`
}

// AlarmNode is one alarm in a hierarchy. Level is negative for ancestors,
// zero for the requested alarm and positive for descendants.
type AlarmNode struct {
	ID            int64  `json:"id"`
	ResultID      *int64 `json:"result_id"`
	AlarmCode     Scalar `json:"alarm_code"`
	AlarmMsg      string `json:"alarm_msg"`
	ParentAlarmID *int64 `json:"parent_alarm_id"`
	Level         int    `json:"level"`
}

// Device is one row of GET /devices.
type Device struct {
	DeviceName string  `json:"device_name"`
	CraftType  Scalar  `json:"craft_type"`
	TotalCount int64   `json:"total_count"`
	OKCount    int64   `json:"ok_count"`
	NOKCount   int64   `json:"nok_count"`
	OKRate     float64 `json:"ok_rate"`
	AlarmCount int64   `json:"alarm_count"`
	URICount   int64   `json:"uri_count"`
	Status     string  `json:"status"`
}

// DeviceList wraps GET /devices.
type DeviceList struct {
	Items []Device `json:"items"`
}

// DeviceDetail is the per-device summary from GET /devices/{name}.
type DeviceDetail struct {
	DeviceName string  `json:"device_name"`
	Total      int64   `json:"total"`
	OKCount    int64   `json:"ok_count"`
	NOKCount   int64   `json:"nok_count"`
	OKRate     float64 `json:"ok_rate"`
	AlarmCount int64   `json:"alarm_count"`
	URICount   int64   `json:"uri_count"`
}

// DeviceURI is a monitored data point address of a device.
type DeviceURI struct {
	ID          int64  `json:"id"`
	DeviceID    string `json:"device_id"`
	URI         string `json:"uri"`
	Level       Scalar `json:"level"`
	Name        string `json:"name"`
	DisplayType string `json:"display_type"`
}

// DeviceURIList wraps GET /devices/{name}/uris.
type DeviceURIList struct {
	Items []DeviceURI `json:"items"`
}

// URIValue is the current value of one device URI.
type URIValue struct {
	URI       string  `json:"uri"`
	Name      string  `json:"name"`
	Value     *string `json:"value"`
	Timestamp Scalar  `json:"timestamp"`
	Status    Scalar  `json:"status"`
}

// URIValueList wraps POST /devices/{name}/uris/current. Error is set when the
// backend could not reach the timeseries platform.
type URIValueList struct {
	Items []URIValue `json:"items"`
	Error string     `json:"error,omitempty"`
}

// StructureNode is one node of the plant hierarchy tree.
type StructureNode struct {
	ID         int64           `json:"id"`
	Label      string          `json:"label"`
	Type       Scalar          `json:"type"`
	ParentID   *int64          `json:"parent_id"`
	Path       string          `json:"path"`
	DeviceName *string         `json:"device_name"`
	Attributes json.RawMessage `json:"attributes"`
	Children   []StructureNode `json:"children"`
}

// Walk visits n and its descendants depth first.
func (n StructureNode) Walk(fn func(node StructureNode, depth int)) {
	n.walk(fn, 0)
}

func (n StructureNode) walk(fn func(StructureNode, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Point is a PLC data point bound to a structure node.
type Point struct {
	ID          int64  `json:"id"`
	StructureID *int64 `json:"structure_id"`
	DeviceID    Scalar `json:"device_id"`
	PointName   string `json:"point_name"`
	PointURI    string `json:"point_uri"`
	GroupPath   string `json:"group_path"`
	DataType    Scalar `json:"data_type"`
	IsTS        Scalar `json:"is_ts"`
}

// Live stream message types sent on /ws/device/{name}.
const (
	StreamURIList = "uri_list"
	StreamURIData = "uri_data"
	StreamPong    = "pong"
)

// StreamMessage is one message of a live device stream.
type StreamMessage struct {
	Type      string      `json:"type"`
	DeviceID  string      `json:"device_id,omitempty"`
	URIs      []StreamURI `json:"uris,omitempty"`
	Data      []URIValue  `json:"data,omitempty"`
	FetchTime string      `json:"fetch_time,omitempty"`
}

// StreamURI is one entry of the initial uri_list message.
type StreamURI struct {
	ID    int64  `json:"id"`
	URI   string `json:"uri"`
	Name  string `json:"name"`
	Level Scalar `json:"level"`
}
