package models

import (
	"github.com/jmylchreest/gomyth/pkg/mythtv/catalog"
	v "github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

// Constant set keys.
const (
	GroupProgramFlags      = "ProgramFlags"
	GroupRecordingStatus   = "RecordingStatus"
	GroupRecordingType     = "RecordingType"
	GroupDupIn             = "DupIn"
	GroupDupMethod         = "DupMethod"
	GroupAudioProperties   = "AudioProperties"
	GroupVideoProperties   = "VideoProperties"
	GroupSubtitleTypes     = "SubtitleTypes"
	GroupCategoryType      = "CategoryType"
	GroupJobType           = "JobType"
	GroupJobStatus         = "JobStatus"
	GroupJobFlags          = "JobFlags"
	GroupChannelVisibility = "ChannelVisibility"
)

// Program flags commonly checked by callers.
const (
	FlagCommFlag       = "FL_COMMFLAG"
	FlagCutList        = "FL_CUTLIST"
	FlagAutoExpire     = "FL_AUTOEXP"
	FlagBookmark       = "FL_BOOKMARK"
	FlagWatched        = "FL_WATCHED"
	FlagInUseRecording = "FL_INUSERECORDING"
	FlagInUsePlaying   = "FL_INUSEPLAYING"
	FlagDamaged        = "VID_DAMAGED"
)

// Recording statuses commonly checked by callers.
const (
	StatusRecording   = "RECORDING"
	StatusRecorded    = "RECORDED"
	StatusWillRecord  = "WILL_RECORD"
	StatusConflict    = "CONFLICT"
	StatusFailed      = "FAILED"
	StatusTunerBusy   = "TUNER_BUSY"
	StatusInactive    = "INACTIVE"
	StatusNeverRecord = "NEVER_RECORD"
)

func fixed(name string, raw int64) catalog.Constant {
	return catalog.Constant{Name: name, Value: v.Fixed(raw)}
}

func since(name string, from v.Version, raw int64) catalog.Constant {
	return catalog.Constant{Name: name, Range: v.Since(from), Value: v.Fixed(raw)}
}

func until(name string, to v.Version, raw int64) catalog.Constant {
	return catalog.Constant{Name: name, Range: v.Until(to), Value: v.Fixed(raw)}
}

// Protocol 57 moved the in-use bits up to make room for editing state.
var programFlags = catalog.ConstantSet{
	Key:  GroupProgramFlags,
	Kind: catalog.KindFlags,
	Constants: []catalog.Constant{
		fixed(FlagCommFlag, 0x00000001),
		fixed(FlagCutList, 0x00000002),
		fixed(FlagAutoExpire, 0x00000004),
		fixed("FL_EDITING", 0x00000008),
		fixed(FlagBookmark, 0x00000010),
		{Name: FlagInUseRecording, Value: v.MustValue(v.At(0, 0x00000020), v.At(57, 0x00100000))},
		{Name: FlagInUsePlaying, Value: v.MustValue(v.At(0, 0x00000040), v.At(57, 0x00200000))},
		fixed("FL_TRANSCODED", 0x00000100),
		fixed(FlagWatched, 0x00000200),
		fixed("FL_PRESERVED", 0x00000400),
		since("FL_REALLYEDITING", 57, 0x00000020),
		since("FL_COMMPROCESSING", 57, 0x00000040),
		since("FL_DELETEPENDING", 57, 0x00000080),
		since("FL_CHANCOMMFREE", 57, 0x00000800),
		since("FL_REPEAT", 57, 0x00001000),
		since("FL_DUPLICATE", 57, 0x00002000),
		since("FL_REACTIVATE", 57, 0x00004000),
		since("FL_IGNOREBOOKMARK", 57, 0x00008000),
		since("FL_INUSEOTHER", 57, 0x00400000),
	},
}

var recordingStatus = catalog.ConstantSet{
	Key:  GroupRecordingStatus,
	Kind: catalog.KindEnum,
	Constants: []catalog.Constant{
		since("PENDING", 82, -15),
		since("FAILING", 82, -14),
		since("OTHER_RECORDING", 82, -13),
		since("OTHER_TUNING", 82, -12),
		since("MISSED_FUTURE", 75, -11),
		fixed("TUNING", -10),
		fixed(StatusFailed, -9),
		fixed(StatusTunerBusy, -8),
		fixed("LOW_DISK_SPACE", -7),
		fixed("CANCELLED", -6),
		fixed("MISSED", -5),
		fixed("ABORTED", -4),
		fixed(StatusRecorded, -3),
		fixed(StatusRecording, -2),
		fixed(StatusWillRecord, -1),
		fixed("UNKNOWN_STATUS", 0),
		fixed("DONT_RECORD", 1),
		fixed("PREVIOUS_RECORDING", 2),
		fixed("CURRENT_RECORDING", 3),
		fixed("EARLIER_SHOWING", 4),
		fixed("TOO_MANY_RECORDINGS", 5),
		fixed("NOT_LISTED", 6),
		fixed(StatusConflict, 7),
		fixed("LATER_SHOWING", 8),
		fixed("REPEAT", 9),
		fixed(StatusInactive, 10),
		fixed(StatusNeverRecord, 11),
		fixed("OFFLINE", 12),
		until("OTHER_SHOWING", 82, 13),
	},
}

// Daily, channel and weekly rules were folded into the find types in 0.28.
var recordingType = catalog.ConstantSet{
	Key:  GroupRecordingType,
	Kind: catalog.KindEnum,
	Constants: []catalog.Constant{
		fixed("NOT_RECORDING", 0),
		fixed("SINGLE_RECORD", 1),
		until("DAILY_RECORD", 83, 2),
		until("CHANNEL_RECORD", 83, 3),
		fixed("ALL_RECORD", 4),
		until("WEEKLY_RECORD", 83, 5),
		fixed("ONE_RECORD", 6),
		fixed("OVERRIDE_RECORD", 7),
		fixed("DONT_RECORD", 8),
		fixed("DAILY_FIND_RECORD", 9),
		fixed("WEEKLY_FIND_RECORD", 10),
		since("TEMPLATE_RECORD", 73, 11),
	},
}

var dupIn = catalog.ConstantSet{
	Key:  GroupDupIn,
	Kind: catalog.KindEnum,
	Constants: []catalog.Constant{
		fixed("DUPS_IN_RECORDED", 0x01),
		fixed("DUPS_IN_OLD_RECORDED", 0x02),
		fixed("DUPS_IN_ALL", 0x0F),
		fixed("DUPS_NEW_EPISODES", 0x10),
	},
}

var dupMethod = catalog.ConstantSet{
	Key:  GroupDupMethod,
	Kind: catalog.KindEnum,
	Constants: []catalog.Constant{
		fixed("DUP_CHECK_NONE", 0x01),
		fixed("DUP_CHECK_SUBTITLE", 0x02),
		fixed("DUP_CHECK_DESCRIPTION", 0x04),
		fixed("DUP_CHECK_SUBTITLE_DESCRIPTION", 0x06),
		since("DUP_CHECK_SUBTITLE_THEN_DESCRIPTION", 60, 0x08),
	},
}

var audioProperties = catalog.ConstantSet{
	Key:  GroupAudioProperties,
	Kind: catalog.KindFlags,
	Constants: []catalog.Constant{
		fixed("AUD_STEREO", 0x01),
		fixed("AUD_MONO", 0x02),
		fixed("AUD_SURROUND", 0x04),
		fixed("AUD_DOLBY", 0x08),
		fixed("AUD_HARDHEAR", 0x10),
		fixed("AUD_VISUALIMPAIR", 0x20),
	},
}

var videoProperties = catalog.ConstantSet{
	Key:  GroupVideoProperties,
	Kind: catalog.KindFlags,
	Constants: []catalog.Constant{
		fixed("VID_HDTV", 0x01),
		fixed("VID_WIDESCREEN", 0x02),
		fixed("VID_AVC", 0x04),
		fixed("VID_720", 0x08),
		fixed("VID_1080", 0x10),
		since(FlagDamaged, 77, 0x20),
		since("VID_3DTV", 80, 0x40),
	},
}

var subtitleTypes = catalog.ConstantSet{
	Key:  GroupSubtitleTypes,
	Kind: catalog.KindFlags,
	Constants: []catalog.Constant{
		fixed("SUB_HARDHEAR", 0x01),
		fixed("SUB_NORMAL", 0x02),
		fixed("SUB_ONSCREEN", 0x04),
		fixed("SUB_SIGNED", 0x08),
	},
}

var categoryType = catalog.ConstantSet{
	Key:  GroupCategoryType,
	Kind: catalog.KindEnum,
	Constants: []catalog.Constant{
		fixed("CATEGORY_NONE", 0),
		fixed("CATEGORY_MOVIE", 1),
		fixed("CATEGORY_SERIES", 2),
		fixed("CATEGORY_SPORTS", 3),
		fixed("CATEGORY_TVSHOW", 4),
	},
}

// Job constants are resolved against the database schema version.
var jobType = catalog.ConstantSet{
	Key:  GroupJobType,
	Kind: catalog.KindEnum,
	Constants: []catalog.Constant{
		fixed("JOB_NONE", 0x0000),
		fixed("JOB_TRANSCODE", 0x0001),
		fixed("JOB_COMMFLAG", 0x0002),
		since("JOB_METADATA", 1309, 0x0004),
		since("JOB_PREVIEW", 1317, 0x0008),
		fixed("JOB_USERJOB1", 0x0100),
		fixed("JOB_USERJOB2", 0x0200),
		fixed("JOB_USERJOB3", 0x0400),
		fixed("JOB_USERJOB4", 0x0800),
	},
}

var jobStatus = catalog.ConstantSet{
	Key:  GroupJobStatus,
	Kind: catalog.KindEnum,
	Constants: []catalog.Constant{
		fixed("JOB_UNKNOWN", 0x0000),
		fixed("JOB_QUEUED", 0x0001),
		fixed("JOB_PENDING", 0x0002),
		fixed("JOB_STARTING", 0x0003),
		fixed("JOB_RUNNING", 0x0004),
		fixed("JOB_STOPPING", 0x0005),
		fixed("JOB_PAUSED", 0x0006),
		fixed("JOB_RETRY", 0x0007),
		fixed("JOB_ERRORING", 0x0008),
		fixed("JOB_ABORTING", 0x0009),
		fixed("JOB_DONE", 0x0100),
		fixed("JOB_FINISHED", 0x0110),
		fixed("JOB_ABORTED", 0x0120),
		fixed("JOB_ERRORED", 0x0130),
		fixed("JOB_CANCELLED", 0x0140),
	},
}

var jobFlags = catalog.ConstantSet{
	Key:  GroupJobFlags,
	Kind: catalog.KindFlags,
	Constants: []catalog.Constant{
		fixed("JOB_USE_CUTLIST", 0x0001),
		fixed("JOB_LIVE_REC", 0x0002),
		fixed("JOB_EXTERNAL", 0x0004),
		since("JOB_REBUILD", 1254, 0x0008),
	},
}

// Channel visibility was a boolean column until it grew the never/always
// states.
var channelVisibility = catalog.ConstantSet{
	Key:  GroupChannelVisibility,
	Kind: catalog.KindEnum,
	Constants: []catalog.Constant{
		since("CHANNEL_NEVER_VISIBLE", 1350, -1),
		fixed("CHANNEL_NOT_VISIBLE", 0),
		fixed("CHANNEL_VISIBLE", 1),
		since("CHANNEL_ALWAYS_VISIBLE", 1350, 2),
	},
}

var constantSets = []catalog.ConstantSet{
	programFlags,
	recordingStatus,
	recordingType,
	dupIn,
	dupMethod,
	audioProperties,
	videoProperties,
	subtitleTypes,
	categoryType,
	jobType,
	jobStatus,
	jobFlags,
	channelVisibility,
}
