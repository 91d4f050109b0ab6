package intervalstore

import (
	"time"

	"github.com/trace-callgraph/pkg/model"
)

// Value kinds stored in IntervalRecord.ValueKind.
const (
	valueNull  = "null"
	valueStr   = "str"
	valueInt   = "int"
	valueFloat = "float"
)

// TraceRecord represents the traces table.
type TraceRecord struct {
	ID        string    `gorm:"column:id;primaryKey;size:64"`
	Name      string    `gorm:"column:name;size:255"`
	StartTime int64     `gorm:"column:start_time"`
	EndTime   int64     `gorm:"column:end_time"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (TraceRecord) TableName() string {
	return "traces"
}

// AttributeRecord represents the trace_attributes table.
type AttributeRecord struct {
	TraceID  string `gorm:"column:trace_id;primaryKey;size:64"`
	ID       int    `gorm:"column:id;primaryKey;autoIncrement:false"`
	ParentID int    `gorm:"column:parent_id"`
	Name     string `gorm:"column:name;size:255"`
}

// TableName returns the table name.
func (AttributeRecord) TableName() string {
	return "trace_attributes"
}

// IntervalRecord represents the trace_intervals table.
type IntervalRecord struct {
	ID          uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	TraceID     string  `gorm:"column:trace_id;size:64;index:idx_interval_lookup,priority:1"`
	AttributeID int     `gorm:"column:attribute_id;index:idx_interval_lookup,priority:2"`
	StartTime   int64   `gorm:"column:start_time"`
	EndTime     int64   `gorm:"column:end_time;index:idx_interval_lookup,priority:3"`
	ValueKind   string  `gorm:"column:value_kind;size:8"`
	StrValue    string  `gorm:"column:str_value;size:1024"`
	IntValue    int64   `gorm:"column:int_value"`
	FloatValue  float64 `gorm:"column:float_value"`
}

// TableName returns the table name.
func (IntervalRecord) TableName() string {
	return "trace_intervals"
}

// ToModel converts the record to an interval.
func (r *IntervalRecord) ToModel() model.Interval {
	iv := model.Interval{
		Attribute: model.AttributeID(r.AttributeID),
		Start:     r.StartTime,
		End:       r.EndTime,
	}
	switch r.ValueKind {
	case valueStr:
		iv.Value = r.StrValue
	case valueInt:
		iv.Value = r.IntValue
	case valueFloat:
		iv.Value = r.FloatValue
	}
	return iv
}

// NewIntervalRecord converts an interval for storage under traceID.
func NewIntervalRecord(traceID string, iv model.Interval) *IntervalRecord {
	r := &IntervalRecord{
		TraceID:     traceID,
		AttributeID: int(iv.Attribute),
		StartTime:   iv.Start,
		EndTime:     iv.End,
		ValueKind:   valueNull,
	}
	switch v := iv.Value.(type) {
	case nil:
	case string:
		r.ValueKind = valueStr
		r.StrValue = v
	case float32:
		r.ValueKind = valueFloat
		r.FloatValue = float64(v)
	case float64:
		r.ValueKind = valueFloat
		r.FloatValue = v
	default:
		if n, ok := model.IntegerValue(v); ok {
			r.ValueKind = valueInt
			r.IntValue = n
		} else {
			r.ValueKind = valueStr
			r.StrValue = model.FormatValue(v)
		}
	}
	return r
}
