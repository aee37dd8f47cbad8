// Package models declares the MythTV field sets and constant sets, and the
// typed records built on them.
//
// Protocol sets are versioned by the negotiated protocol version, database
// sets by the schema version (settings.DBSchemaVer). Typed records embed
// *record.Record; their accessors return the zero value for fields that do
// not exist at the record's version.
package models

import (
	"time"

	"github.com/jmylchreest/gomyth/pkg/mythtv/catalog"
	"github.com/jmylchreest/gomyth/pkg/mythtv/codec"
	"github.com/jmylchreest/gomyth/pkg/mythtv/group"
	"github.com/jmylchreest/gomyth/pkg/mythtv/record"
)

// Field set keys.
const (
	KeyProgramInfo      = "ProgramInfo"
	KeyRecorderLocation = "RecorderLocation"
	KeyDriveInfo        = "DriveInfo"
	KeyFreeSpaceSummary = "FreeSpaceSummary"
	KeyLoadAverage      = "LoadAverage"
	KeyMemoryStats      = "MemoryStats"
	KeyUptime           = "Uptime"
	KeyGuideDataThrough = "GuideDataThrough"

	KeyRecordingRule   = "RecordingRule"
	KeyJob             = "Job"
	KeyChannel         = "Channel"
	KeySetting         = "Setting"
	KeyRecordedProgram = "RecordedProgram"
)

var fieldSets = []catalog.FieldSet{
	programInfo,
	recorderLocation,
	driveInfo,
	freeSpaceSummary,
	loadAverage,
	memoryStats,
	uptime,
	guideDataThrough,
	recordingRule,
	job,
	channel,
	setting,
	recordedProgram,
}

// NewCatalog returns a catalog holding every MythTV field and constant set.
func NewCatalog(opts ...catalog.Option) *catalog.Catalog {
	cat := catalog.New(opts...)
	cat.MustRegisterConstants(constantSets...)
	cat.MustRegister(fieldSets...)
	return cat
}

// NewRegistry returns a registry with a factory for every field set in the
// codec's catalog.
func NewRegistry(c *codec.Codec, opts ...record.RegistryOption) *record.Registry {
	reg := record.NewRegistry(c, opts...)
	reg.MustRegister(KeyProgramInfo, func(r *record.Record) record.Typed { return &ProgramInfo{r} })
	reg.MustRegister(KeyRecorderLocation, func(r *record.Record) record.Typed { return &RecorderLocation{r} })
	reg.MustRegister(KeyDriveInfo, func(r *record.Record) record.Typed { return &DriveInfo{r} })
	reg.MustRegister(KeyFreeSpaceSummary, func(r *record.Record) record.Typed { return &FreeSpaceSummary{r} })
	reg.MustRegister(KeyLoadAverage, func(r *record.Record) record.Typed { return &LoadAverage{r} })
	reg.MustRegister(KeyMemoryStats, func(r *record.Record) record.Typed { return &MemoryStats{r} })
	reg.MustRegister(KeyUptime, func(r *record.Record) record.Typed { return &Uptime{r} })
	reg.MustRegister(KeyGuideDataThrough, func(r *record.Record) record.Typed { return &GuideDataThrough{r} })
	reg.MustRegister(KeyRecordingRule, func(r *record.Record) record.Typed { return &RecordingRule{r} })
	reg.MustRegister(KeyJob, func(r *record.Record) record.Typed { return &Job{r} })
	reg.MustRegister(KeyChannel, func(r *record.Record) record.Typed { return &Channel{r} })
	reg.MustRegister(KeySetting, func(r *record.Record) record.Typed { return &Setting{r} })
	reg.MustRegister(KeyRecordedProgram, func(r *record.Record) record.Typed { return &RecordedProgram{r} })
	return reg
}

// Records from a Registry are validated on construction, so the accessors
// below only see decode failures after a caller bypassed the codec with
// SetRaw. Use Record.Get to observe those.

func str(r *record.Record, name string) string {
	val, _ := r.Get(name)
	s, _ := val.(string)
	return s
}

func integer(r *record.Record, name string) int {
	val, _ := r.Get(name)
	n, _ := val.(int)
	return n
}

func long(r *record.Record, name string) int64 {
	val, _ := r.Get(name)
	n, _ := val.(int64)
	return n
}

func boolean(r *record.Record, name string) bool {
	val, _ := r.Get(name)
	b, _ := val.(bool)
	return b
}

func float(r *record.Record, name string) float64 {
	val, _ := r.Get(name)
	f, _ := val.(float64)
	return f
}

func date(r *record.Record, name string) time.Time {
	val, _ := r.Get(name)
	t, _ := val.(time.Time)
	return t
}

func enum(r *record.Record, name string) *group.Enum {
	val, _ := r.Get(name)
	e, _ := val.(*group.Enum)
	return e
}

func flags(r *record.Record, name string) *group.Flags {
	val, _ := r.Get(name)
	f, _ := val.(*group.Flags)
	return f
}
