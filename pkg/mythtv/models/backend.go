package models

import (
	"time"

	"github.com/jmylchreest/gomyth/pkg/mythtv/catalog"
	"github.com/jmylchreest/gomyth/pkg/mythtv/record"
	v "github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

var recorderLocation = catalog.FieldSet{
	Key:    KeyRecorderLocation,
	Domain: catalog.DomainProtocol,
	Fields: []catalog.Field{
		field("RECORDER_ID", catalog.TypeInteger),
		field("HOSTNAME", catalog.TypeString),
		field("PORT", catalog.TypeInteger),
	},
}

// RecorderLocation is the reply to GET_FREE_RECORDER and GET_RECORDER_NUM.
// An ID of -1 means no recorder.
type RecorderLocation struct {
	*record.Record
}

func (l *RecorderLocation) ID() int          { return integer(l.Record, "RECORDER_ID") }
func (l *RecorderLocation) Hostname() string { return str(l.Record, "HOSTNAME") }
func (l *RecorderLocation) Port() int        { return integer(l.Record, "PORT") }

// Available reports whether the backend named a recorder.
func (l *RecorderLocation) Available() bool { return l.ID() > 0 }

// Sizes moved from two 32-bit halves to one 64-bit token at protocol 66.
var driveInfo = catalog.FieldSet{
	Key:    KeyDriveInfo,
	Domain: catalog.DomainProtocol,
	Fields: []catalog.Field{
		field("HOSTNAME", catalog.TypeString),
		field("DIRECTORY", catalog.TypeString),
		field("IS_LOCAL", catalog.TypeBoolean),
		field("FILESYSTEM_ID", catalog.TypeInteger),
		field("STORAGE_GROUP_ID", catalog.TypeInteger),
		field("BLOCK_SIZE", catalog.TypeLong),
		fieldIn("TOTAL_SPACE_HIGH", catalog.TypeInteger, v.Until(66)),
		fieldIn("TOTAL_SPACE_LOW", catalog.TypeInteger, v.Until(66)),
		fieldIn("TOTAL_SPACE", catalog.TypeLong, v.Since(66)),
		fieldIn("USED_SPACE_HIGH", catalog.TypeInteger, v.Until(66)),
		fieldIn("USED_SPACE_LOW", catalog.TypeInteger, v.Until(66)),
		fieldIn("USED_SPACE", catalog.TypeLong, v.Since(66)),
	},
}

// DriveInfo is one storage directory from QUERY_FREE_SPACE. Sizes are in
// KiB.
type DriveInfo struct {
	*record.Record
}

func (d *DriveInfo) Hostname() string    { return str(d.Record, "HOSTNAME") }
func (d *DriveInfo) Directory() string   { return str(d.Record, "DIRECTORY") }
func (d *DriveInfo) IsLocal() bool       { return boolean(d.Record, "IS_LOCAL") }
func (d *DriveInfo) FilesystemID() int   { return integer(d.Record, "FILESYSTEM_ID") }
func (d *DriveInfo) StorageGroupID() int { return integer(d.Record, "STORAGE_GROUP_ID") }
func (d *DriveInfo) BlockSize() int64    { return long(d.Record, "BLOCK_SIZE") }

// TotalSpace returns the capacity in KiB.
func (d *DriveInfo) TotalSpace() int64 { return sized(d.Record, "TOTAL_SPACE") }

// UsedSpace returns the used space in KiB.
func (d *DriveInfo) UsedSpace() int64 { return sized(d.Record, "USED_SPACE") }

// FreeSpace returns the remaining space in KiB.
func (d *DriveInfo) FreeSpace() int64 { return d.TotalSpace() - d.UsedSpace() }

var freeSpaceSummary = catalog.FieldSet{
	Key:    KeyFreeSpaceSummary,
	Domain: catalog.DomainProtocol,
	Fields: []catalog.Field{
		fieldIn("TOTAL_SPACE_HIGH", catalog.TypeInteger, v.Until(66)),
		fieldIn("TOTAL_SPACE_LOW", catalog.TypeInteger, v.Until(66)),
		fieldIn("TOTAL_SPACE", catalog.TypeLong, v.Since(66)),
		fieldIn("USED_SPACE_HIGH", catalog.TypeInteger, v.Until(66)),
		fieldIn("USED_SPACE_LOW", catalog.TypeInteger, v.Until(66)),
		fieldIn("USED_SPACE", catalog.TypeLong, v.Since(66)),
	},
}

// FreeSpaceSummary totals every storage group of the backend, in KiB.
type FreeSpaceSummary struct {
	*record.Record
}

func (s *FreeSpaceSummary) TotalSpace() int64 { return sized(s.Record, "TOTAL_SPACE") }
func (s *FreeSpaceSummary) UsedSpace() int64  { return sized(s.Record, "USED_SPACE") }
func (s *FreeSpaceSummary) FreeSpace() int64  { return s.TotalSpace() - s.UsedSpace() }

func sized(r *record.Record, name string) int64 {
	if r.Has(name) {
		return long(r, name)
	}
	hi := int64(integer(r, name+"_HIGH"))
	lo := int64(uint32(integer(r, name+"_LOW")))
	return hi<<32 | lo
}

var loadAverage = catalog.FieldSet{
	Key:    KeyLoadAverage,
	Domain: catalog.DomainProtocol,
	Fields: []catalog.Field{
		field("ONE_MINUTE", catalog.TypeFloat),
		field("FIVE_MINUTES", catalog.TypeFloat),
		field("FIFTEEN_MINUTES", catalog.TypeFloat),
	},
}

// LoadAverage is the backend host's load from QUERY_LOAD.
type LoadAverage struct {
	*record.Record
}

func (l *LoadAverage) OneMinute() float64      { return float(l.Record, "ONE_MINUTE") }
func (l *LoadAverage) FiveMinutes() float64    { return float(l.Record, "FIVE_MINUTES") }
func (l *LoadAverage) FifteenMinutes() float64 { return float(l.Record, "FIFTEEN_MINUTES") }

var memoryStats = catalog.FieldSet{
	Key:    KeyMemoryStats,
	Domain: catalog.DomainProtocol,
	Fields: []catalog.Field{
		field("TOTAL_RAM_MB", catalog.TypeInteger),
		field("FREE_RAM_MB", catalog.TypeInteger),
		field("TOTAL_VM_MB", catalog.TypeInteger),
		field("FREE_VM_MB", catalog.TypeInteger),
	},
}

// MemoryStats is the reply to QUERY_MEMSTATS, in MiB.
type MemoryStats struct {
	*record.Record
}

func (m *MemoryStats) TotalRAM() int { return integer(m.Record, "TOTAL_RAM_MB") }
func (m *MemoryStats) FreeRAM() int  { return integer(m.Record, "FREE_RAM_MB") }
func (m *MemoryStats) TotalVM() int  { return integer(m.Record, "TOTAL_VM_MB") }
func (m *MemoryStats) FreeVM() int   { return integer(m.Record, "FREE_VM_MB") }

var uptime = catalog.FieldSet{
	Key:    KeyUptime,
	Domain: catalog.DomainProtocol,
	Fields: []catalog.Field{
		field("SECONDS", catalog.TypeLong),
	},
}

// Uptime is the reply to QUERY_UPTIME.
type Uptime struct {
	*record.Record
}

// Duration returns the host uptime.
func (u *Uptime) Duration() time.Duration {
	return time.Duration(long(u.Record, "SECONDS")) * time.Second
}

var guideDataThrough = catalog.FieldSet{
	Key:    KeyGuideDataThrough,
	Domain: catalog.DomainProtocol,
	Fields: []catalog.Field{
		{Name: "DATE", Type: catalog.TypeDate, Layout: "2006-01-02 15:04"},
	},
}

// GuideDataThrough is the last time covered by the program guide.
type GuideDataThrough struct {
	*record.Record
}

// Time returns the end of guide data, zero when the backend has none.
func (g *GuideDataThrough) Time() time.Time { return date(g.Record, "DATE") }
