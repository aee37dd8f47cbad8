package protocol

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmylchreest/gomyth/pkg/mythtv/models"
	"github.com/jmylchreest/gomyth/pkg/mythtv/record"
)

// PendingRecordings is the reply to QUERY_GETALLPENDING.
type PendingRecordings struct {
	HasConflicts bool
	Programs     []*models.ProgramInfo
}

// FileInfo is the reply to QUERY_FILE_EXISTS and QUERY_CHECKFILE.
type FileInfo struct {
	Exists bool
	Path   string
}

func decode[T record.Typed](c *Client, key string, tokens []string) (T, error) {
	return record.As[T](c.reg.FromPacket(key, c.version, tokens))
}

// decodeList splits tokens into count consecutive records of key.
func decodeList[T record.Typed](c *Client, key string, count int, tokens []string) ([]T, error) {
	width := c.reg.Catalog().Count(key, c.version)
	if count < 0 || width == 0 || len(tokens) != count*width {
		return nil, fmt.Errorf("%w: %d tokens for %d %s records of %d fields",
			ErrUnexpectedReply, len(tokens), count, key, width)
	}
	out := make([]T, 0, count)
	for i := range count {
		item, err := decode[T](c, key, tokens[i*width:(i+1)*width])
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", key, i, err)
		}
		out = append(out, item)
	}
	return out, nil
}

// countedPrograms decodes a reply of the form count, program...
func (c *Client) countedPrograms(reply []string) ([]*models.ProgramInfo, error) {
	if len(reply) == 0 {
		return nil, fmt.Errorf("%w: empty program list", ErrUnexpectedReply)
	}
	n, err := strconv.Atoi(reply[0])
	if err != nil {
		return nil, fmt.Errorf("%w: program count %q", ErrUnexpectedReply, reply[0])
	}
	return decodeList[*models.ProgramInfo](c, models.KeyProgramInfo, n, reply[1:])
}

func parseBool(cmd, tok string) (bool, error) {
	n, err := strconv.Atoi(tok)
	if err != nil {
		return false, fmt.Errorf("%s: %w: %q", cmd, ErrUnexpectedReply, tok)
	}
	return n != 0, nil
}

// Done ends the session without closing the client's socket. Later calls
// return ErrClosed. Prefer Close.
func (c *Client) Done(ctx context.Context) error {
	if err := checkCommand(CmdDone, c.version); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(CmdDone); err != nil {
		return err
	}
	if err := c.conn.WritePacket(ctx, []string{CmdDone}); err != nil {
		return c.fail(ctx, CmdDone, err)
	}
	c.ended = true
	return nil
}

// QueryUptime returns the backend host uptime.
func (c *Client) QueryUptime(ctx context.Context) (*models.Uptime, error) {
	reply, err := c.call(ctx, CmdQueryUptime, CmdQueryUptime)
	if err != nil {
		return nil, err
	}
	return decode[*models.Uptime](c, models.KeyUptime, reply)
}

// QueryLoad returns the backend load averages.
func (c *Client) QueryLoad(ctx context.Context) (*models.LoadAverage, error) {
	reply, err := c.call(ctx, CmdQueryLoad, CmdQueryLoad)
	if err != nil {
		return nil, err
	}
	return decode[*models.LoadAverage](c, models.KeyLoadAverage, reply)
}

// QueryMemStats returns the backend memory usage in MiB.
func (c *Client) QueryMemStats(ctx context.Context) (*models.MemoryStats, error) {
	reply, err := c.call(ctx, CmdQueryMemStats, CmdQueryMemStats)
	if err != nil {
		return nil, err
	}
	return decode[*models.MemoryStats](c, models.KeyMemoryStats, reply)
}

// QueryFreeSpaceSummary returns the combined size of all storage groups.
func (c *Client) QueryFreeSpaceSummary(ctx context.Context) (*models.FreeSpaceSummary, error) {
	reply, err := c.call(ctx, CmdQueryFreeSpaceSum, CmdQueryFreeSpaceSum)
	if err != nil {
		return nil, err
	}
	return decode[*models.FreeSpaceSummary](c, models.KeyFreeSpaceSummary, reply)
}

// QueryFreeSpace returns one entry per storage directory.
func (c *Client) QueryFreeSpace(ctx context.Context) ([]*models.DriveInfo, error) {
	reply, err := c.call(ctx, CmdQueryFreeSpace, CmdQueryFreeSpace)
	if err != nil {
		return nil, err
	}
	width := c.reg.Catalog().Count(models.KeyDriveInfo, c.version)
	if width == 0 || len(reply)%width != 0 {
		return nil, fmt.Errorf("%s: %w: %d tokens", CmdQueryFreeSpace, ErrUnexpectedReply, len(reply))
	}
	return decodeList[*models.DriveInfo](c, models.KeyDriveInfo, len(reply)/width, reply)
}

// QueryGuideDataThrough returns the end of the available guide data.
func (c *Client) QueryGuideDataThrough(ctx context.Context) (*models.GuideDataThrough, error) {
	reply, err := c.call(ctx, CmdQueryGuideData, CmdQueryGuideData)
	if err != nil {
		return nil, err
	}
	return decode[*models.GuideDataThrough](c, models.KeyGuideDataThrough, reply)
}

// QueryRecordings lists recordings. filter is one of the Filter constants.
func (c *Client) QueryRecordings(ctx context.Context, filter string) ([]*models.ProgramInfo, error) {
	if filter == "" {
		filter = FilterPlay
	}
	reply, err := c.call(ctx, CmdQueryRecordings, CmdQueryRecordings+" "+filter)
	if err != nil {
		return nil, err
	}
	return c.countedPrograms(reply)
}

// QueryPendingRecordings lists upcoming recordings with their scheduler
// status.
func (c *Client) QueryPendingRecordings(ctx context.Context) (*PendingRecordings, error) {
	reply, err := c.call(ctx, CmdQueryPending, CmdQueryPending)
	if err != nil {
		return nil, err
	}
	if len(reply) < 2 {
		return nil, fmt.Errorf("%s: %w: %q", CmdQueryPending, ErrUnexpectedReply, reply)
	}
	conflicts, err := parseBool(CmdQueryPending, reply[0])
	if err != nil {
		return nil, err
	}
	programs, err := c.countedPrograms(reply[1:])
	if err != nil {
		return nil, err
	}
	return &PendingRecordings{HasConflicts: conflicts, Programs: programs}, nil
}

// QueryScheduledRecordings lists the programs matched by recording rules.
func (c *Client) QueryScheduledRecordings(ctx context.Context) ([]*models.ProgramInfo, error) {
	reply, err := c.call(ctx, CmdQueryScheduled, CmdQueryScheduled)
	if err != nil {
		return nil, err
	}
	return c.countedPrograms(reply)
}

// QueryRecording looks up a recording by its file basename.
func (c *Client) QueryRecording(ctx context.Context, basename string) (*models.ProgramInfo, error) {
	reply, err := c.call(ctx, CmdQueryRecording, CmdQueryRecording+" BASENAME", basename)
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return nil, fmt.Errorf("recording %q: %w", basename, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := expectOK(CmdQueryRecording, reply); err != nil {
		return nil, err
	}
	return decode[*models.ProgramInfo](c, models.KeyProgramInfo, reply[1:])
}

// QueryCheckFile asks the backend where the file for p lives. With
// checkSlaves set, slave backends are asked as well.
func (c *Client) QueryCheckFile(ctx context.Context, p *models.ProgramInfo, checkSlaves bool) (*FileInfo, error) {
	tokens, err := c.programTokens(p)
	if err != nil {
		return nil, err
	}
	slaves := "0"
	if checkSlaves {
		slaves = "1"
	}
	reply, err := c.call(ctx, CmdQueryCheckFile, append([]string{CmdQueryCheckFile, slaves}, tokens...)...)
	if err != nil {
		return nil, err
	}
	exists, err := parseBool(CmdQueryCheckFile, reply[0])
	if err != nil {
		return nil, err
	}
	info := &FileInfo{Exists: exists}
	if len(reply) > 1 {
		info.Path = reply[1]
	}
	return info, nil
}

// QueryFileExists looks for filename in a storage group.
func (c *Client) QueryFileExists(ctx context.Context, filename, storageGroup string) (*FileInfo, error) {
	if storageGroup == "" {
		storageGroup = "Default"
	}
	reply, err := c.call(ctx, CmdQueryFileExists, CmdQueryFileExists, filename, storageGroup)
	if err != nil {
		return nil, err
	}
	exists, err := parseBool(CmdQueryFileExists, reply[0])
	if err != nil {
		return nil, err
	}
	info := &FileInfo{Exists: exists}
	if exists && len(reply) > 1 {
		info.Path = reply[1]
	}
	return info, nil
}

// GetFreeRecorder returns an idle recorder. The result is not Available
// when every recorder is busy.
func (c *Client) GetFreeRecorder(ctx context.Context) (*models.RecorderLocation, error) {
	reply, err := c.call(ctx, CmdGetFreeRecorder, CmdGetFreeRecorder)
	if err != nil {
		return nil, err
	}
	return decode[*models.RecorderLocation](c, models.KeyRecorderLocation, reply)
}

// GetRecorderNum returns the recorder currently recording p.
func (c *Client) GetRecorderNum(ctx context.Context, p *models.ProgramInfo) (*models.RecorderLocation, error) {
	tokens, err := c.programTokens(p)
	if err != nil {
		return nil, err
	}
	reply, err := c.call(ctx, CmdGetRecorderNum, append([]string{CmdGetRecorderNum}, tokens...)...)
	if err != nil {
		return nil, err
	}
	return decode[*models.RecorderLocation](c, models.KeyRecorderLocation, reply)
}

// QueryRecorderIsRecording reports whether recorder n is recording.
func (c *Client) QueryRecorderIsRecording(ctx context.Context, n int) (bool, error) {
	reply, err := c.call(ctx, CmdQueryRecorder, fmt.Sprintf("%s %d", CmdQueryRecorder, n), "IS_RECORDING")
	if err != nil {
		return false, err
	}
	return parseBool(CmdQueryRecorder, reply[0])
}

// ForgetRecording removes p from the duplicate history so it can be
// recorded again.
func (c *Client) ForgetRecording(ctx context.Context, p *models.ProgramInfo) error {
	tokens, err := c.programTokens(p)
	if err != nil {
		return err
	}
	reply, err := c.call(ctx, CmdForgetRecording, append([]string{CmdForgetRecording}, tokens...)...)
	if err != nil {
		return err
	}
	if _, err := strconv.Atoi(reply[0]); err != nil {
		return fmt.Errorf("%s: %w: %q", CmdForgetRecording, ErrUnexpectedReply, reply)
	}
	return nil
}

// DeleteRecording deletes the recording p. The backend answers with a
// status code.
func (c *Client) DeleteRecording(ctx context.Context, p *models.ProgramInfo) (int, error) {
	tokens, err := c.programTokens(p)
	if err != nil {
		return 0, err
	}
	reply, err := c.call(ctx, CmdDeleteRecording, append([]string{CmdDeleteRecording}, tokens...)...)
	if err != nil {
		return 0, err
	}
	code, err := strconv.Atoi(reply[0])
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %q", CmdDeleteRecording, ErrUnexpectedReply, reply)
	}
	return code, nil
}

// RescheduleRecordings asks the scheduler to rerun for recordID, or for
// every rule when recordID is 0.
func (c *Client) RescheduleRecordings(ctx context.Context, recordID int) error {
	var tokens []string
	if c.version < rescheduleMatchVersion {
		if recordID == 0 {
			recordID = -1
		}
		tokens = []string{fmt.Sprintf("%s %d", CmdRescheduleRecordings, recordID)}
	} else {
		tokens = []string{CmdRescheduleRecordings, fmt.Sprintf("MATCH %d 0 0 - %s", recordID, c.hostname)}
	}
	reply, err := c.call(ctx, CmdRescheduleRecordings, tokens...)
	if err != nil {
		return err
	}
	ok, err := parseBool(CmdRescheduleRecordings, reply[0])
	if err != nil {
		return err
	}
	if !ok {
		return &BackendError{Command: CmdRescheduleRecordings, Reply: reply}
	}
	return nil
}

// BackendMessage broadcasts msg to every connected client.
func (c *Client) BackendMessage(ctx context.Context, msg string) error {
	reply, err := c.call(ctx, CmdMessage, CmdMessage, msg)
	if err != nil {
		return err
	}
	return expectOK(CmdMessage, reply)
}

// NewProgram returns an empty ProgramInfo for the connection's version.
func (c *Client) NewProgram() (*models.ProgramInfo, error) {
	return record.As[*models.ProgramInfo](c.reg.New(models.KeyProgramInfo, c.version, 0))
}
