package protocol

import (
	"fmt"

	"github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

// Command names as sent on the wire.
const (
	CmdDone                 = "DONE"
	CmdAnnounce             = "ANN"
	CmdQueryUptime          = "QUERY_UPTIME"
	CmdQueryLoad            = "QUERY_LOAD"
	CmdQueryMemStats        = "QUERY_MEMSTATS"
	CmdQueryFreeSpace       = "QUERY_FREE_SPACE"
	CmdQueryFreeSpaceSum    = "QUERY_FREE_SPACE_SUMMARY"
	CmdQueryGuideData       = "QUERY_GUIDEDATATHROUGH"
	CmdQueryRecordings      = "QUERY_RECORDINGS"
	CmdQueryPending         = "QUERY_GETALLPENDING"
	CmdQueryScheduled       = "QUERY_GETALLSCHEDULED"
	CmdQueryRecording       = "QUERY_RECORDING"
	CmdQueryCheckFile       = "QUERY_CHECKFILE"
	CmdQueryFileExists      = "QUERY_FILE_EXISTS"
	CmdGetFreeRecorder      = "GET_FREE_RECORDER"
	CmdGetRecorderNum       = "GET_RECORDER_NUM"
	CmdQueryRecorder        = "QUERY_RECORDER"
	CmdForgetRecording      = "FORGET_RECORDING"
	CmdDeleteRecording      = "DELETE_RECORDING"
	CmdRescheduleRecordings = "RESCHEDULE_RECORDINGS"
	CmdMessage              = "MESSAGE"
)

// commands maps each command to the protocol versions that accept it.
var commands = map[string]versioning.Range{
	CmdDone:                 versioning.Always,
	CmdAnnounce:             versioning.Always,
	CmdQueryUptime:          versioning.Always,
	CmdQueryLoad:            versioning.Always,
	CmdQueryMemStats:        versioning.Always,
	CmdQueryFreeSpace:       versioning.Always,
	CmdQueryFreeSpaceSum:    versioning.Always,
	CmdQueryGuideData:       versioning.Always,
	CmdQueryRecordings:      versioning.Always,
	CmdQueryPending:         versioning.Always,
	CmdQueryScheduled:       versioning.Always,
	CmdQueryRecording:       versioning.Always,
	CmdQueryCheckFile:       versioning.Always,
	CmdQueryFileExists:      versioning.Always,
	CmdGetFreeRecorder:      versioning.Until(87),
	CmdGetRecorderNum:       versioning.Always,
	CmdQueryRecorder:        versioning.Always,
	CmdForgetRecording:      versioning.Always,
	CmdDeleteRecording:      versioning.Always,
	CmdRescheduleRecordings: versioning.Always,
	CmdMessage:              versioning.Always,
}

// Recording list filters for QUERY_RECORDINGS. Protocols before 65 only
// know Play and Delete.
const (
	FilterPlay      = "Play"
	FilterDelete    = "Delete"
	FilterRecording = "Recording"
	FilterAscending = "Ascending"
	FilterDescend   = "Descending"
)

// rescheduleMatchVersion is the first protocol taking the MATCH/CHECK
// reschedule syntax.
const rescheduleMatchVersion versioning.Version = 73

// CommandSupported reports whether cmd is accepted at protocol v.
func CommandSupported(cmd string, v versioning.Version) bool {
	r, ok := commands[cmd]
	return ok && r.Contains(v)
}

func checkCommand(cmd string, v versioning.Version) error {
	if !CommandSupported(cmd, v) {
		return fmt.Errorf("%s at protocol %s: %w", cmd, v, ErrCommandUnsupported)
	}
	return nil
}
