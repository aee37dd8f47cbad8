package models

import (
	"time"

	"github.com/jmylchreest/gomyth/pkg/mythtv/catalog"
	"github.com/jmylchreest/gomyth/pkg/mythtv/group"
	"github.com/jmylchreest/gomyth/pkg/mythtv/record"
	v "github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

// Schema versions of MythTV releases referenced by the declarations below.
const (
	Schema025 v.Version = 1299
	Schema026 v.Version = 1307
	Schema027 v.Version = 1317
	Schema028 v.Version = 1344
	Schema029 v.Version = 1350
)

func col(name, column string, typ catalog.FieldType) catalog.Field {
	return catalog.Field{Name: name, Column: column, Type: typ}
}

func colIn(name, column string, typ catalog.FieldType, r v.Range) catalog.Field {
	return catalog.Field{Name: name, Column: column, Type: typ, Range: r}
}

func colGroup(name, column string, typ catalog.FieldType, grp string) catalog.Field {
	return catalog.Field{Name: name, Column: column, Type: typ, Group: grp}
}

func colDefault(name, column string, typ catalog.FieldType, def string) catalog.Field {
	return catalog.Field{Name: name, Column: column, Type: typ, Default: catalog.DefaultOf(def)}
}

// primaryKeys lists the fields identifying a row of each database set.
var primaryKeys = map[string][]string{
	KeyRecordingRule:   {"RECORD_ID"},
	KeyJob:             {"ID"},
	KeyChannel:         {"CHANNEL_ID"},
	KeySetting:         {"VALUE", "HOSTNAME"},
	KeyRecordedProgram: {"CHANNEL_ID", "START_TIME"},
}

// PrimaryKey returns the field names identifying a row of the database set
// key, or nil for protocol sets.
func PrimaryKey(key string) []string {
	pk := primaryKeys[key]
	if pk == nil {
		return nil
	}
	out := make([]string, len(pk))
	copy(out, pk)
	return out
}

// autoIncrement names the field filled in by the database on insert.
var autoIncrement = map[string]string{
	KeyRecordingRule: "RECORD_ID",
	KeyJob:           "ID",
}

// AutoIncrement returns the field the database assigns on insert, if any.
func AutoIncrement(key string) (string, bool) {
	name, ok := autoIncrement[key]
	return name, ok
}

var recordingRule = catalog.FieldSet{
	Key:    KeyRecordingRule,
	Domain: catalog.DomainSchema,
	Table:  "record",
	Fields: []catalog.Field{
		col("RECORD_ID", "recordid", catalog.TypeInteger),
		colGroup("TYPE", "type", catalog.TypeEnum, GroupRecordingType),
		col("CHANNEL_ID", "chanid", catalog.TypeInteger),
		{Name: "START_DATE", Column: "startdate", Type: catalog.TypeDate, Layout: "2006-01-02"},
		col("START_TIME", "starttime", catalog.TypeString),
		{Name: "END_DATE", Column: "enddate", Type: catalog.TypeDate, Layout: "2006-01-02"},
		col("END_TIME", "endtime", catalog.TypeString),
		col("TITLE", "title", catalog.TypeString),
		col("SUBTITLE", "subtitle", catalog.TypeString),
		col("DESCRIPTION", "description", catalog.TypeString),
		colIn("SEASON", "season", catalog.TypeInteger, v.Since(1277)),
		colIn("EPISODE", "episode", catalog.TypeInteger, v.Since(1277)),
		col("CATEGORY", "category", catalog.TypeString),
		colDefault("PROFILE", "profile", catalog.TypeString, "Default"),
		colDefault("REC_PRIORITY", "recpriority", catalog.TypeInteger, "0"),
		colDefault("AUTO_EXPIRE", "autoexpire", catalog.TypeBoolean, "0"),
		colDefault("MAX_EPISODES", "maxepisodes", catalog.TypeInteger, "0"),
		colDefault("MAX_NEWEST", "maxnewest", catalog.TypeBoolean, "0"),
		colDefault("START_OFFSET", "startoffset", catalog.TypeInteger, "0"),
		colDefault("END_OFFSET", "endoffset", catalog.TypeInteger, "0"),
		colDefault("REC_GROUP", "recgroup", catalog.TypeString, "Default"),
		colGroup("DUP_METHOD", "dupmethod", catalog.TypeEnum, GroupDupMethod),
		colGroup("DUP_IN", "dupin", catalog.TypeEnum, GroupDupIn),
		col("STATION", "station", catalog.TypeString),
		col("SERIES_ID", "seriesid", catalog.TypeString),
		col("PROGRAM_ID", "programid", catalog.TypeString),
		colIn("INETREF", "inetref", catalog.TypeString, v.Since(1255)),
		colDefault("SEARCH", "search", catalog.TypeInteger, "0"),
		colDefault("AUTO_TRANSCODE", "autotranscode", catalog.TypeBoolean, "0"),
		colDefault("AUTO_COMMFLAG", "autocommflag", catalog.TypeBoolean, "0"),
		colDefault("AUTO_USERJOB1", "autouserjob1", catalog.TypeBoolean, "0"),
		colDefault("AUTO_USERJOB2", "autouserjob2", catalog.TypeBoolean, "0"),
		colDefault("AUTO_USERJOB3", "autouserjob3", catalog.TypeBoolean, "0"),
		colDefault("AUTO_USERJOB4", "autouserjob4", catalog.TypeBoolean, "0"),
		colIn("AUTO_METADATA", "autometadata", catalog.TypeBoolean, v.Since(Schema026+2)),
		col("FIND_DAY", "findday", catalog.TypeInteger),
		col("FIND_TIME", "findtime", catalog.TypeString),
		col("FIND_ID", "findid", catalog.TypeInteger),
		colDefault("INACTIVE", "inactive", catalog.TypeBoolean, "0"),
		col("PARENT_ID", "parentid", catalog.TypeInteger),
		col("TRANSCODER", "transcoder", catalog.TypeInteger),
		colDefault("PLAY_GROUP", "playgroup", catalog.TypeString, "Default"),
		col("PREFER_INPUT", "prefinput", catalog.TypeInteger),
		col("NEXT_RECORD", "next_record", catalog.TypeDate),
		col("LAST_RECORD", "last_record", catalog.TypeDate),
		col("LAST_DELETE", "last_delete", catalog.TypeDate),
		colDefault("STORAGE_GROUP", "storagegroup", catalog.TypeString, "Default"),
		col("AVG_DELAY", "avg_delay", catalog.TypeInteger),
		colIn("FILTER", "filter", catalog.TypeInteger, v.Since(1241)),
	},
}

// RecordingRule is a row of the record table.
type RecordingRule struct {
	*record.Record
}

func (r *RecordingRule) ID() int                 { return integer(r.Record, "RECORD_ID") }
func (r *RecordingRule) Type() *group.Enum       { return enum(r.Record, "TYPE") }
func (r *RecordingRule) ChannelID() int          { return integer(r.Record, "CHANNEL_ID") }
func (r *RecordingRule) Title() string           { return str(r.Record, "TITLE") }
func (r *RecordingRule) Subtitle() string        { return str(r.Record, "SUBTITLE") }
func (r *RecordingRule) Description() string     { return str(r.Record, "DESCRIPTION") }
func (r *RecordingRule) Category() string        { return str(r.Record, "CATEGORY") }
func (r *RecordingRule) Station() string         { return str(r.Record, "STATION") }
func (r *RecordingRule) RecPriority() int        { return integer(r.Record, "REC_PRIORITY") }
func (r *RecordingRule) RecGroup() string        { return str(r.Record, "REC_GROUP") }
func (r *RecordingRule) StorageGroup() string    { return str(r.Record, "STORAGE_GROUP") }
func (r *RecordingRule) AutoExpire() bool        { return boolean(r.Record, "AUTO_EXPIRE") }
func (r *RecordingRule) Inactive() bool          { return boolean(r.Record, "INACTIVE") }
func (r *RecordingRule) DupMethod() *group.Enum  { return enum(r.Record, "DUP_METHOD") }
func (r *RecordingRule) DupIn() *group.Enum      { return enum(r.Record, "DUP_IN") }
func (r *RecordingRule) NextRecord() time.Time   { return date(r.Record, "NEXT_RECORD") }
func (r *RecordingRule) LastRecord() time.Time   { return date(r.Record, "LAST_RECORD") }
func (r *RecordingRule) StartOffset() int        { return integer(r.Record, "START_OFFSET") }
func (r *RecordingRule) EndOffset() int          { return integer(r.Record, "END_OFFSET") }
func (r *RecordingRule) MaxEpisodes() int        { return integer(r.Record, "MAX_EPISODES") }
func (r *RecordingRule) Inetref() string         { return str(r.Record, "INETREF") }

// SetTitle renames the rule.
func (r *RecordingRule) SetTitle(s string) error { return r.Set("TITLE", s) }

// SetInactive disables or re-enables the rule without deleting it.
func (r *RecordingRule) SetInactive(b bool) error { return r.Set("INACTIVE", b) }

var job = catalog.FieldSet{
	Key:    KeyJob,
	Domain: catalog.DomainSchema,
	Table:  "jobqueue",
	Fields: []catalog.Field{
		col("ID", "id", catalog.TypeInteger),
		col("CHANNEL_ID", "chanid", catalog.TypeInteger),
		col("START_TIME", "starttime", catalog.TypeDate),
		col("INSERT_TIME", "inserttime", catalog.TypeDate),
		colGroup("TYPE", "type", catalog.TypeEnum, GroupJobType),
		colDefault("CMDS", "cmds", catalog.TypeInteger, "0"),
		colGroup("FLAGS", "flags", catalog.TypeFlags, GroupJobFlags),
		colGroup("STATUS", "status", catalog.TypeEnum, GroupJobStatus),
		col("STATUS_TIME", "statustime", catalog.TypeDate),
		col("HOSTNAME", "hostname", catalog.TypeString),
		col("ARGS", "args", catalog.TypeString),
		col("COMMENT", "comment", catalog.TypeString),
		col("SCHEDULED_TIME", "schedruntime", catalog.TypeDate),
	},
}

// Job is a row of the jobqueue table.
type Job struct {
	*record.Record
}

func (j *Job) ID() int                  { return integer(j.Record, "ID") }
func (j *Job) ChannelID() int           { return integer(j.Record, "CHANNEL_ID") }
func (j *Job) StartTime() time.Time     { return date(j.Record, "START_TIME") }
func (j *Job) InsertTime() time.Time    { return date(j.Record, "INSERT_TIME") }
func (j *Job) Type() *group.Enum        { return enum(j.Record, "TYPE") }
func (j *Job) Flags() *group.Flags      { return flags(j.Record, "FLAGS") }
func (j *Job) Status() *group.Enum      { return enum(j.Record, "STATUS") }
func (j *Job) StatusTime() time.Time    { return date(j.Record, "STATUS_TIME") }
func (j *Job) Hostname() string         { return str(j.Record, "HOSTNAME") }
func (j *Job) Comment() string          { return str(j.Record, "COMMENT") }
func (j *Job) ScheduledTime() time.Time { return date(j.Record, "SCHEDULED_TIME") }

// IsDone reports whether the job reached a terminal state. Terminal
// statuses all carry the 0x100 bit.
func (j *Job) IsDone() bool {
	s := j.Status()
	return s != nil && s.Value()&0x100 != 0
}

var channel = catalog.FieldSet{
	Key:    KeyChannel,
	Domain: catalog.DomainSchema,
	Table:  "channel",
	Fields: []catalog.Field{
		col("CHANNEL_ID", "chanid", catalog.TypeInteger),
		col("CHANNEL_NUMBER", "channum", catalog.TypeString),
		col("SOURCE_ID", "sourceid", catalog.TypeInteger),
		col("CALLSIGN", "callsign", catalog.TypeString),
		col("NAME", "name", catalog.TypeString),
		col("ICON", "icon", catalog.TypeString),
		{Name: "VISIBLE", Column: "visible", Type: catalog.TypeEnum, Group: GroupChannelVisibility, Default: catalog.DefaultOf("1")},
		col("XMLTV_ID", "xmltvid", catalog.TypeString),
		colDefault("REC_PRIORITY", "recpriority", catalog.TypeInteger, "0"),
		colDefault("COMM_METHOD", "commmethod", catalog.TypeInteger, "-1"),
		col("MPLEX_ID", "mplexid", catalog.TypeInteger),
		col("SERVICE_ID", "serviceid", catalog.TypeInteger),
		colIn("DELETED", "deleted", catalog.TypeDate, v.Since(Schema028)),
	},
}

// Channel is a row of the channel table.
type Channel struct {
	*record.Record
}

func (c *Channel) ID() int                 { return integer(c.Record, "CHANNEL_ID") }
func (c *Channel) Number() string          { return str(c.Record, "CHANNEL_NUMBER") }
func (c *Channel) SourceID() int           { return integer(c.Record, "SOURCE_ID") }
func (c *Channel) Callsign() string        { return str(c.Record, "CALLSIGN") }
func (c *Channel) Name() string            { return str(c.Record, "NAME") }
func (c *Channel) Icon() string            { return str(c.Record, "ICON") }
func (c *Channel) Visibility() *group.Enum { return enum(c.Record, "VISIBLE") }
func (c *Channel) XMLTVID() string         { return str(c.Record, "XMLTV_ID") }
func (c *Channel) Deleted() time.Time      { return date(c.Record, "DELETED") }

// IsVisible reports whether the channel is shown in guides.
func (c *Channel) IsVisible() bool {
	vis := c.Visibility()
	return vis != nil && vis.Value() > 0 && c.Deleted().IsZero()
}

var setting = catalog.FieldSet{
	Key:    KeySetting,
	Domain: catalog.DomainSchema,
	Table:  "settings",
	Fields: []catalog.Field{
		col("VALUE", "value", catalog.TypeString),
		col("DATA", "data", catalog.TypeString),
		col("HOSTNAME", "hostname", catalog.TypeString),
	},
}

// Setting is a row of the settings table. A nil hostname marks a global
// setting.
type Setting struct {
	*record.Record
}

func (s *Setting) Name() string     { return str(s.Record, "VALUE") }
func (s *Setting) Data() string     { return str(s.Record, "DATA") }
func (s *Setting) Hostname() string { return str(s.Record, "HOSTNAME") }

// IsGlobal reports whether the setting applies to every host.
func (s *Setting) IsGlobal() bool {
	h, _ := s.Raw("HOSTNAME")
	return h == nil || *h == ""
}

var recordedProgram = catalog.FieldSet{
	Key:    KeyRecordedProgram,
	Domain: catalog.DomainSchema,
	Table:  "recorded",
	Fields: []catalog.Field{
		col("CHANNEL_ID", "chanid", catalog.TypeInteger),
		col("START_TIME", "starttime", catalog.TypeDate),
		col("END_TIME", "endtime", catalog.TypeDate),
		col("TITLE", "title", catalog.TypeString),
		col("SUBTITLE", "subtitle", catalog.TypeString),
		col("DESCRIPTION", "description", catalog.TypeString),
		colIn("SEASON", "season", catalog.TypeInteger, v.Since(1277)),
		colIn("EPISODE", "episode", catalog.TypeInteger, v.Since(1277)),
		col("CATEGORY", "category", catalog.TypeString),
		col("HOSTNAME", "hostname", catalog.TypeString),
		colDefault("BOOKMARK", "bookmark", catalog.TypeBoolean, "0"),
		col("FILESIZE", "filesize", catalog.TypeLong),
		col("STARS", "stars", catalog.TypeFloat),
		col("BASENAME", "basename", catalog.TypeString),
		col("PROGRAM_ID", "programid", catalog.TypeString),
		colIn("INETREF", "inetref", catalog.TypeString, v.Since(1255)),
		col("RECORD_ID", "recordid", catalog.TypeInteger),
		colDefault("REC_GROUP", "recgroup", catalog.TypeString, "Default"),
		colDefault("STORAGE_GROUP", "storagegroup", catalog.TypeString, "Default"),
		colDefault("WATCHED", "watched", catalog.TypeBoolean, "0"),
		colIn("RECORDED_ID", "recordedid", catalog.TypeInteger, v.Since(Schema028-5)),
		colIn("INPUT_NAME", "inputname", catalog.TypeString, v.Since(Schema028)),
	},
}

// RecordedProgram is a row of the recorded table.
type RecordedProgram struct {
	*record.Record
}

func (p *RecordedProgram) ChannelID() int       { return integer(p.Record, "CHANNEL_ID") }
func (p *RecordedProgram) StartTime() time.Time { return date(p.Record, "START_TIME") }
func (p *RecordedProgram) EndTime() time.Time   { return date(p.Record, "END_TIME") }
func (p *RecordedProgram) Title() string        { return str(p.Record, "TITLE") }
func (p *RecordedProgram) Subtitle() string     { return str(p.Record, "SUBTITLE") }
func (p *RecordedProgram) Hostname() string     { return str(p.Record, "HOSTNAME") }
func (p *RecordedProgram) FileSize() int64      { return long(p.Record, "FILESIZE") }
func (p *RecordedProgram) Basename() string     { return str(p.Record, "BASENAME") }
func (p *RecordedProgram) RecordID() int        { return integer(p.Record, "RECORD_ID") }
func (p *RecordedProgram) RecGroup() string     { return str(p.Record, "REC_GROUP") }
func (p *RecordedProgram) Watched() bool        { return boolean(p.Record, "WATCHED") }
func (p *RecordedProgram) RecordedID() int      { return integer(p.Record, "RECORDED_ID") }
