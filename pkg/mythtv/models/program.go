package models

import (
	"path"
	"time"

	"github.com/jmylchreest/gomyth/pkg/mythtv/catalog"
	"github.com/jmylchreest/gomyth/pkg/mythtv/group"
	"github.com/jmylchreest/gomyth/pkg/mythtv/record"
	v "github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

func field(name string, typ catalog.FieldType) catalog.Field {
	return catalog.Field{Name: name, Type: typ}
}

func fieldIn(name string, typ catalog.FieldType, r v.Range) catalog.Field {
	return catalog.Field{Name: name, Type: typ, Range: r}
}

func groupField(name string, typ catalog.FieldType, grp string) catalog.Field {
	return catalog.Field{Name: name, Type: typ, Group: grp}
}

// programInfo is the ProgramInfo string list as sent by the backend. Order
// is the wire order.
var programInfo = catalog.FieldSet{
	Key:    KeyProgramInfo,
	Domain: catalog.DomainProtocol,
	Fields: []catalog.Field{
		field("TITLE", catalog.TypeString),
		field("SUBTITLE", catalog.TypeString),
		field("DESCRIPTION", catalog.TypeString),
		fieldIn("SEASON", catalog.TypeInteger, v.Since(67)),
		fieldIn("EPISODE", catalog.TypeInteger, v.Since(67)),
		fieldIn("TOTAL_EPISODES", catalog.TypeInteger, v.Since(76)),
		fieldIn("SYNDICATED_EPISODE", catalog.TypeString, v.Since(76)),
		field("CATEGORY", catalog.TypeString),
		field("CHANNEL_ID", catalog.TypeInteger),
		field("CHANNEL_NUMBER", catalog.TypeString),
		field("CALLSIGN", catalog.TypeString),
		field("CHANNEL_NAME", catalog.TypeString),
		field("PATHNAME", catalog.TypeString),
		fieldIn("FILESIZE_HIGH", catalog.TypeInteger, v.Until(57)),
		fieldIn("FILESIZE_LOW", catalog.TypeInteger, v.Until(57)),
		fieldIn("FILESIZE", catalog.TypeLong, v.Since(57)),
		field("START_TIME", catalog.TypeDate),
		field("END_TIME", catalog.TypeDate),
		fieldIn("DUPLICATE", catalog.TypeBoolean, v.Until(57)),
		fieldIn("SHAREABLE", catalog.TypeBoolean, v.Until(57)),
		fieldIn("FIND_ID", catalog.TypeInteger, v.Until(82)),
		field("HOSTNAME", catalog.TypeString),
		field("SOURCE_ID", catalog.TypeInteger),
		fieldIn("CARD_ID", catalog.TypeInteger, v.Until(87)),
		field("INPUT_ID", catalog.TypeInteger),
		field("REC_PRIORITY", catalog.TypeInteger),
		groupField("REC_STATUS", catalog.TypeEnum, GroupRecordingStatus),
		field("RECORD_ID", catalog.TypeInteger),
		groupField("REC_TYPE", catalog.TypeEnum, GroupRecordingType),
		groupField("DUP_IN", catalog.TypeEnum, GroupDupIn),
		groupField("DUP_METHOD", catalog.TypeEnum, GroupDupMethod),
		field("REC_START_TIME", catalog.TypeDate),
		field("REC_END_TIME", catalog.TypeDate),
		fieldIn("REPEAT", catalog.TypeBoolean, v.Until(57)),
		groupField("PROGRAM_FLAGS", catalog.TypeFlags, GroupProgramFlags),
		field("REC_GROUP", catalog.TypeString),
		fieldIn("CHAN_COMM_FREE", catalog.TypeBoolean, v.Until(57)),
		field("OUTPUT_FILTERS", catalog.TypeString),
		field("SERIES_ID", catalog.TypeString),
		field("PROGRAM_ID", catalog.TypeString),
		fieldIn("INETREF", catalog.TypeString, v.Since(67)),
		field("LAST_MODIFIED", catalog.TypeDate),
		field("STARS", catalog.TypeFloat),
		{Name: "ORIGINAL_AIRDATE", Type: catalog.TypeDate, Layout: "2006-01-02"},
		fieldIn("HAS_AIRDATE", catalog.TypeBoolean, v.Until(57)),
		field("PLAY_GROUP", catalog.TypeString),
		field("REC_PRIORITY2", catalog.TypeInteger),
		field("PARENT_ID", catalog.TypeInteger),
		field("STORAGE_GROUP", catalog.TypeString),
		groupField("AUDIO_PROPERTIES", catalog.TypeFlags, GroupAudioProperties),
		groupField("VIDEO_PROPERTIES", catalog.TypeFlags, GroupVideoProperties),
		groupField("SUBTITLE_TYPE", catalog.TypeFlags, GroupSubtitleTypes),
		field("YEAR", catalog.TypeInteger),
		fieldIn("PART_NUMBER", catalog.TypeInteger, v.Since(76)),
		fieldIn("PART_TOTAL", catalog.TypeInteger, v.Since(76)),
		{Name: "CATEGORY_TYPE", Type: catalog.TypeEnum, Group: GroupCategoryType, Range: v.Since(79)},
		fieldIn("RECORDED_ID", catalog.TypeInteger, v.Since(82)),
		fieldIn("INPUT_NAME", catalog.TypeString, v.Since(87)),
		fieldIn("BOOKMARK_UPDATE", catalog.TypeDate, v.Since(89)),
	},
}

// ProgramInfo describes a recording, a scheduled recording or a guide entry.
type ProgramInfo struct {
	*record.Record
}

func (p *ProgramInfo) Title() string         { return str(p.Record, "TITLE") }
func (p *ProgramInfo) Subtitle() string      { return str(p.Record, "SUBTITLE") }
func (p *ProgramInfo) Description() string   { return str(p.Record, "DESCRIPTION") }
func (p *ProgramInfo) Season() int           { return integer(p.Record, "SEASON") }
func (p *ProgramInfo) Episode() int          { return integer(p.Record, "EPISODE") }
func (p *ProgramInfo) TotalEpisodes() int    { return integer(p.Record, "TOTAL_EPISODES") }
func (p *ProgramInfo) Category() string      { return str(p.Record, "CATEGORY") }
func (p *ProgramInfo) ChannelID() int        { return integer(p.Record, "CHANNEL_ID") }
func (p *ProgramInfo) ChannelNumber() string { return str(p.Record, "CHANNEL_NUMBER") }
func (p *ProgramInfo) Callsign() string      { return str(p.Record, "CALLSIGN") }
func (p *ProgramInfo) ChannelName() string   { return str(p.Record, "CHANNEL_NAME") }
func (p *ProgramInfo) Pathname() string      { return str(p.Record, "PATHNAME") }
func (p *ProgramInfo) StartTime() time.Time  { return date(p.Record, "START_TIME") }
func (p *ProgramInfo) EndTime() time.Time    { return date(p.Record, "END_TIME") }
func (p *ProgramInfo) Hostname() string      { return str(p.Record, "HOSTNAME") }
func (p *ProgramInfo) SourceID() int         { return integer(p.Record, "SOURCE_ID") }
func (p *ProgramInfo) InputID() int          { return integer(p.Record, "INPUT_ID") }
func (p *ProgramInfo) RecordID() int         { return integer(p.Record, "RECORD_ID") }
func (p *ProgramInfo) RecGroup() string      { return str(p.Record, "REC_GROUP") }
func (p *ProgramInfo) SeriesID() string      { return str(p.Record, "SERIES_ID") }
func (p *ProgramInfo) ProgramID() string     { return str(p.Record, "PROGRAM_ID") }
func (p *ProgramInfo) Inetref() string       { return str(p.Record, "INETREF") }
func (p *ProgramInfo) Stars() float64        { return float(p.Record, "STARS") }
func (p *ProgramInfo) StorageGroup() string  { return str(p.Record, "STORAGE_GROUP") }
func (p *ProgramInfo) Year() int             { return integer(p.Record, "YEAR") }
func (p *ProgramInfo) RecordedID() int       { return integer(p.Record, "RECORDED_ID") }
func (p *ProgramInfo) InputName() string     { return str(p.Record, "INPUT_NAME") }

// RecStartTime is when recording actually began, including start offsets.
func (p *ProgramInfo) RecStartTime() time.Time { return date(p.Record, "REC_START_TIME") }

// RecEndTime is when recording ended or is due to end.
func (p *ProgramInfo) RecEndTime() time.Time { return date(p.Record, "REC_END_TIME") }

// OriginalAirdate is a calendar date; the zero time means unknown.
func (p *ProgramInfo) OriginalAirdate() time.Time { return date(p.Record, "ORIGINAL_AIRDATE") }

// Status returns the recording status, nil when the token is empty.
func (p *ProgramInfo) Status() *group.Enum { return enum(p.Record, "REC_STATUS") }

// RecType returns the type of the rule that scheduled the program.
func (p *ProgramInfo) RecType() *group.Enum { return enum(p.Record, "REC_TYPE") }

// Flags returns the program flags bitmask.
func (p *ProgramInfo) Flags() *group.Flags { return flags(p.Record, "PROGRAM_FLAGS") }

func (p *ProgramInfo) AudioProperties() *group.Flags { return flags(p.Record, "AUDIO_PROPERTIES") }
func (p *ProgramInfo) VideoProperties() *group.Flags { return flags(p.Record, "VIDEO_PROPERTIES") }
func (p *ProgramInfo) SubtitleTypes() *group.Flags   { return flags(p.Record, "SUBTITLE_TYPE") }

// FileSize returns the recording size in bytes. Protocols before 57 send
// it as two signed 32-bit halves.
func (p *ProgramInfo) FileSize() int64 {
	if p.Has("FILESIZE") {
		return long(p.Record, "FILESIZE")
	}
	hi := int64(integer(p.Record, "FILESIZE_HIGH"))
	lo := int64(uint32(integer(p.Record, "FILESIZE_LOW")))
	return hi<<32 | lo
}

// SetFileSize stores size in whichever layout the version uses.
func (p *ProgramInfo) SetFileSize(size int64) error {
	if p.Has("FILESIZE") {
		return p.Set("FILESIZE", size)
	}
	if err := p.Set("FILESIZE_HIGH", int(int32(size>>32))); err != nil {
		return err
	}
	return p.Set("FILESIZE_LOW", int(int32(uint32(size))))
}

// Duration is the scheduled length of the program.
func (p *ProgramInfo) Duration() time.Duration {
	start, end := p.StartTime(), p.EndTime()
	if start.IsZero() || end.IsZero() {
		return 0
	}
	return end.Sub(start)
}

// Basename is the recording's file name without the myth:// URL or storage
// directory.
func (p *ProgramInfo) Basename() string {
	name := p.Pathname()
	if name == "" {
		return ""
	}
	return path.Base(name)
}

// IsStatus reports whether the recording status is the named constant.
func (p *ProgramInfo) IsStatus(name string) bool {
	s := p.Status()
	return s != nil && s.Is(name)
}

// HasFlag reports whether the named program flag is set.
func (p *ProgramInfo) HasFlag(name string) bool {
	fl := p.Flags()
	return fl != nil && fl.IsSet(name)
}

// IsRecording reports whether the backend is currently writing the file.
func (p *ProgramInfo) IsRecording() bool {
	return p.IsStatus(StatusRecording) || p.HasFlag(FlagInUseRecording)
}
