package protocol

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/gomyth/pkg/mythtv/codec"
	"github.com/jmylchreest/gomyth/pkg/mythtv/models"
	"github.com/jmylchreest/gomyth/pkg/mythtv/record"
	"github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
	"github.com/jmylchreest/gomyth/pkg/mythtv/wire"
)

// fakeBackend answers the handshake and routes every other packet to a
// handler keyed by the command word.
type fakeBackend struct {
	version  versioning.Version
	handlers map[string]func(tokens []string) []string

	mu       sync.Mutex
	received [][]string
}

func newFakeBackend(t *testing.T, version versioning.Version) *fakeBackend {
	t.Helper()
	return &fakeBackend{version: version, handlers: map[string]func([]string) []string{}}
}

func (b *fakeBackend) handle(cmd string, reply ...string) {
	b.handlers[cmd] = func([]string) []string { return reply }
}

func (b *fakeBackend) packets() [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]string(nil), b.received...)
}

func (b *fakeBackend) serve(raw net.Conn) {
	conn := wire.NewConn(raw)
	defer conn.Close()
	ctx := context.Background()

	for {
		tokens, err := conn.ReadPacket(ctx)
		if err != nil {
			return
		}
		b.mu.Lock()
		b.received = append(b.received, tokens)
		b.mu.Unlock()

		words := strings.Fields(tokens[0])
		var cmd string
		if len(words) > 0 {
			cmd = words[0]
		}
		switch cmd {
		case "MYTH_PROTO_VERSION":
			offered, _ := strconv.Atoi(words[1])
			if versioning.Version(offered) != b.version {
				_ = conn.WritePacket(ctx, []string{"REJECT", strconv.Itoa(int(b.version))})
				return
			}
			_ = conn.WritePacket(ctx, []string{"ACCEPT", words[1]})
		case CmdAnnounce:
			_ = conn.WritePacket(ctx, []string{"OK"})
		case CmdDone:
			return
		default:
			h, ok := b.handlers[cmd]
			if !ok {
				_ = conn.WritePacket(ctx, []string{"UNKNOWN_COMMAND"})
				continue
			}
			_ = conn.WritePacket(ctx, h(tokens))
		}
	}
}

func (b *fakeBackend) dialer() Dialer {
	return func(ctx context.Context, addr string) (net.Conn, error) {
		client, server := net.Pipe()
		go b.serve(server)
		return client, nil
	}
}

// listen serves the fake backend on a loopback TCP socket and returns its
// address. Unlike net.Pipe, a reply written after the client gives up stays
// buffered in the stream.
func (b *fakeBackend) listen(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	go func() {
		for {
			raw, err := l.Accept()
			if err != nil {
				return
			}
			go b.serve(raw)
		}
	}()
	return l.Addr().String()
}

func testRegistry() *record.Registry {
	return models.NewRegistry(codec.New(models.NewCatalog(), codec.WithLocation(time.UTC)))
}

func dial(t *testing.T, b *fakeBackend, opts ...ClientOption) *Client {
	t.Helper()
	opts = append([]ClientOption{
		WithDialer(b.dialer()),
		WithHostname("testhost"),
		WithVersion(b.version),
		WithRegistry(testRegistry()),
	}, opts...)
	c, err := Dial(context.Background(), "backend", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func program(t *testing.T, reg *record.Registry, version versioning.Version, title, basename string) *models.ProgramInfo {
	t.Helper()
	p, err := record.As[*models.ProgramInfo](reg.New(models.KeyProgramInfo, version, 0))
	require.NoError(t, err)
	require.NoError(t, p.Set("TITLE", title))
	require.NoError(t, p.Set("CHANNEL_ID", 1021))
	require.NoError(t, p.Set("PATHNAME", "myth://Default@backend:6543/"+basename))
	require.NoError(t, p.Set("START_TIME", time.Date(2012, 10, 27, 20, 0, 0, 0, time.UTC)))
	require.NoError(t, p.Set("END_TIME", time.Date(2012, 10, 27, 21, 0, 0, 0, time.UTC)))
	require.NoError(t, p.Set("REC_STATUS", models.StatusWillRecord))
	return p
}

func programList(programs ...*models.ProgramInfo) []string {
	out := []string{strconv.Itoa(len(programs))}
	for _, p := range programs {
		out = append(out, p.Tokens()...)
	}
	return out
}

func TestDial_Handshake(t *testing.T) {
	b := newFakeBackend(t, 88)
	c := dial(t, b)

	assert.Equal(t, versioning.Version(88), c.Version())
	assert.Equal(t, "backend:6543", c.Addr())

	got := b.packets()
	require.Len(t, got, 2)
	assert.Equal(t, []string{"MYTH_PROTO_VERSION 88 XmasGift"}, got[0])
	assert.Equal(t, []string{"ANN Playback testhost 0"}, got[1])
}

func TestDial_NoTokenBeforeProtocol62(t *testing.T) {
	b := newFakeBackend(t, 57)
	dial(t, b, WithAnnounce(AnnounceMonitor))

	got := b.packets()
	require.Len(t, got, 2)
	assert.Equal(t, []string{"MYTH_PROTO_VERSION 57"}, got[0])
	assert.Equal(t, []string{"ANN Monitor testhost 0"}, got[1])
}

func TestDial_Rejected(t *testing.T) {
	b := newFakeBackend(t, 75)

	_, err := Dial(context.Background(), "backend",
		WithDialer(b.dialer()), WithVersion(88), WithRegistry(testRegistry()))

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, versioning.Version(88), rejected.Offered)
	assert.Equal(t, versioning.Version(75), rejected.Backend)
}

func TestDial_RetriesWithBackendVersion(t *testing.T) {
	b := newFakeBackend(t, 75)
	c := dial(t, b, WithVersion(88), WithRetryRejected(true))
	assert.Equal(t, versioning.Version(75), c.Version())

	got := b.packets()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"MYTH_PROTO_VERSION 88 XmasGift"}, got[0])
	assert.Equal(t, []string{"MYTH_PROTO_VERSION 75 SweetRock"}, got[1])
}

func TestDial_RetryNeedsSupportedVersion(t *testing.T) {
	b := newFakeBackend(t, 86)

	_, err := Dial(context.Background(), "backend",
		WithDialer(b.dialer()), WithVersion(88), WithRetryRejected(true), WithRegistry(testRegistry()))

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, versioning.Version(86), rejected.Backend)
}

func TestDial_UnsupportedVersion(t *testing.T) {
	b := newFakeBackend(t, 88)
	_, err := Dial(context.Background(), "backend", WithDialer(b.dialer()), WithVersion(40))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestQueryRecordings(t *testing.T) {
	b := newFakeBackend(t, 88)
	c := dial(t, b)

	reg := c.Registry()
	b.handle(CmdQueryRecordings, programList(
		program(t, reg, 88, "Doctor Who", "1021_20121027200000.ts"),
		program(t, reg, 88, "Tatort", "1021_20121028200000.ts"),
	)...)

	got, err := c.QueryRecordings(context.Background(), FilterDescend)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Doctor Who", got[0].Title())
	assert.Equal(t, "1021_20121028200000.ts", got[1].Basename())
	assert.True(t, got[0].IsStatus(models.StatusWillRecord))

	assert.Equal(t, []string{"QUERY_RECORDINGS Descending"}, b.packets()[2])
}

func TestQueryRecordings_CountMismatch(t *testing.T) {
	b := newFakeBackend(t, 88)
	c := dial(t, b)

	tokens := programList(program(t, c.Registry(), 88, "Doctor Who", "a.ts"))
	tokens[0] = "2"
	b.handle(CmdQueryRecordings, tokens...)

	_, err := c.QueryRecordings(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnexpectedReply)
}

func TestQueryPendingRecordings(t *testing.T) {
	b := newFakeBackend(t, 88)
	c := dial(t, b)

	b.handle(CmdQueryPending, append([]string{"1"},
		programList(program(t, c.Registry(), 88, "Tatort", "b.ts"))...)...)

	pending, err := c.QueryPendingRecordings(context.Background())
	require.NoError(t, err)
	assert.True(t, pending.HasConflicts)
	require.Len(t, pending.Programs, 1)
	assert.Equal(t, "Tatort", pending.Programs[0].Title())
}

func TestQueryRecording(t *testing.T) {
	b := newFakeBackend(t, 88)
	c := dial(t, b)

	p := program(t, c.Registry(), 88, "Doctor Who", "1021_20121027200000.ts")
	b.handlers[CmdQueryRecording] = func(tokens []string) []string {
		if tokens[1] == "1021_20121027200000.ts" {
			return append([]string{"OK"}, p.Tokens()...)
		}
		return []string{"ERROR"}
	}

	got, err := c.QueryRecording(context.Background(), "1021_20121027200000.ts")
	require.NoError(t, err)
	assert.Equal(t, "Doctor Who", got.Title())

	_, err = c.QueryRecording(context.Background(), "missing.ts")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueryFreeSpace(t *testing.T) {
	b := newFakeBackend(t, 88)
	c := dial(t, b)

	b.handle(CmdQueryFreeSpace,
		"backend", "/var/lib/mythtv/recordings", "1", "-1", "1", "4096", "1000000", "250000",
		"backend", "/srv/recordings", "1", "-1", "2", "4096", "2000000", "500000",
	)

	drives, err := c.QueryFreeSpace(context.Background())
	require.NoError(t, err)
	require.Len(t, drives, 2)
	assert.Equal(t, "/srv/recordings", drives[1].Directory())
	assert.Equal(t, int64(750000), drives[0].FreeSpace())
}

func TestBackendQueries(t *testing.T) {
	b := newFakeBackend(t, 88)
	c := dial(t, b)
	ctx := context.Background()

	b.handle(CmdQueryUptime, "7200")
	b.handle(CmdQueryLoad, "0.5", "0.25", "0.125")
	b.handle(CmdQueryMemStats, "2048", "1024", "4096", "4000")
	b.handle(CmdQueryGuideData, "2012-11-10 00:00")
	b.handle(CmdQueryRecorder, "1")
	b.handle(CmdMessage, "OK")

	up, err := c.QueryUptime(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, up.Duration())

	load, err := c.QueryLoad(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, load.FiveMinutes(), 1e-9)

	mem, err := c.QueryMemStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1024, mem.FreeRAM())

	guide, err := c.QueryGuideDataThrough(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2012, guide.Time().Year())

	busy, err := c.QueryRecorderIsRecording(ctx, 3)
	require.NoError(t, err)
	assert.True(t, busy)

	require.NoError(t, c.BackendMessage(ctx, "CLEAR_SETTINGS_CACHE"))

	got := b.packets()
	assert.Contains(t, got, []string{"QUERY_RECORDER 3", "IS_RECORDING"})
	assert.Contains(t, got, []string{"MESSAGE", "CLEAR_SETTINGS_CACHE"})
}

func TestCommandOutsideVersionRange(t *testing.T) {
	b := newFakeBackend(t, 88)
	c := dial(t, b)

	_, err := c.GetFreeRecorder(context.Background())
	assert.ErrorIs(t, err, ErrCommandUnsupported)
	assert.Len(t, b.packets(), 2)

	old := newFakeBackend(t, 75)
	old.handle(CmdGetFreeRecorder, "2", "backend", "6543")
	oc := dial(t, old)

	loc, err := oc.GetFreeRecorder(context.Background())
	require.NoError(t, err)
	assert.True(t, loc.Available())
	assert.Equal(t, 2, loc.ID())
}

func TestErrorReplies(t *testing.T) {
	b := newFakeBackend(t, 88)
	c := dial(t, b)

	b.handle(CmdMessage, "bad")
	err := c.BackendMessage(context.Background(), "hello")
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, CmdMessage, backendErr.Command)

	_, err = c.QueryUptime(context.Background())
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, []string{"UNKNOWN_COMMAND"}, backendErr.Reply)
}

func TestProgramCommands(t *testing.T) {
	b := newFakeBackend(t, 88)
	c := dial(t, b)
	ctx := context.Background()

	b.handle(CmdForgetRecording, "0")
	b.handle(CmdDeleteRecording, "-1")
	b.handle(CmdGetRecorderNum, "4", "backend", "6543")
	b.handle(CmdQueryCheckFile, "1", "/var/lib/mythtv/recordings/a.ts")

	p := program(t, c.Registry(), 88, "Tatort", "a.ts")
	require.NoError(t, c.ForgetRecording(ctx, p))

	code, err := c.DeleteRecording(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, -1, code)

	loc, err := c.GetRecorderNum(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 4, loc.ID())

	info, err := c.QueryCheckFile(ctx, p, true)
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, "/var/lib/mythtv/recordings/a.ts", info.Path)

	got := b.packets()
	forget := got[2]
	assert.Equal(t, CmdForgetRecording, forget[0])
	assert.Equal(t, p.Tokens(), forget[1:])
	assert.Equal(t, []string{CmdQueryCheckFile, "1"}, got[5][:2])
}

func TestProgramCommands_VersionMismatch(t *testing.T) {
	b := newFakeBackend(t, 88)
	c := dial(t, b)

	p := program(t, c.Registry(), 75, "Tatort", "a.ts")
	err := c.ForgetRecording(context.Background(), p)
	assert.ErrorIs(t, err, ErrVersionMismatch)
	assert.Len(t, b.packets(), 2)
}

func TestRescheduleRecordings(t *testing.T) {
	tests := []struct {
		name     string
		version  versioning.Version
		recordID int
		want     []string
	}{
		{name: "match form", version: 88, recordID: 12, want: []string{"RESCHEDULE_RECORDINGS", "MATCH 12 0 0 - testhost"}},
		{name: "legacy single rule", version: 72, recordID: 12, want: []string{"RESCHEDULE_RECORDINGS 12"}},
		{name: "legacy all rules", version: 72, recordID: 0, want: []string{"RESCHEDULE_RECORDINGS -1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend(t, tt.version)
			b.handle(CmdRescheduleRecordings, "1")
			c := dial(t, b)

			require.NoError(t, c.RescheduleRecordings(context.Background(), tt.recordID))
			assert.Equal(t, tt.want, b.packets()[2])
		})
	}
}

func TestClose(t *testing.T) {
	b := newFakeBackend(t, 88)
	c := dial(t, b)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.QueryUptime(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestTimedOutCallDropsConnection(t *testing.T) {
	b := newFakeBackend(t, 88)
	b.handlers[CmdQueryRecorder] = func(tokens []string) []string {
		if tokens[0] == CmdQueryRecorder+" 1" {
			time.Sleep(200 * time.Millisecond)
			return []string{"1"}
		}
		return []string{"0"}
	}
	c, err := Dial(context.Background(), b.listen(t),
		WithHostname("testhost"),
		WithVersion(b.version),
		WithRegistry(testRegistry()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.QueryRecorderIsRecording(ctx, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Give the late reply time to land in the socket buffer.
	time.Sleep(300 * time.Millisecond)

	recording, err := c.QueryRecorderIsRecording(context.Background(), 2)
	require.ErrorIs(t, err, ErrClosed)
	assert.False(t, recording)

	_, err = c.QueryUptime(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, c.Close())
}

func TestCancelledCallDropsConnection(t *testing.T) {
	b := newFakeBackend(t, 88)
	b.handlers[CmdQueryUptime] = func([]string) []string {
		time.Sleep(200 * time.Millisecond)
		return []string{"60"}
	}
	c := dial(t, b)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err := c.QueryUptime(ctx)
	require.ErrorIs(t, err, context.Canceled)

	_, err = c.QueryUptime(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Done(context.Background()), ErrClosed)
}

func TestDone(t *testing.T) {
	b := newFakeBackend(t, 88)
	b.handle(CmdQueryUptime, "60")
	c, err := Dial(context.Background(), b.listen(t),
		WithHostname("testhost"),
		WithVersion(b.version),
		WithRegistry(testRegistry()),
	)
	require.NoError(t, err)

	require.NoError(t, c.Done(context.Background()))
	_, err = c.QueryUptime(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Done(context.Background()), ErrClosed)
	assert.NoError(t, c.Close())

	require.Eventually(t, func() bool {
		pk := b.packets()
		return len(pk) == 3 && pk[2][0] == CmdDone
	}, time.Second, 10*time.Millisecond)
}

func TestConcurrentCalls(t *testing.T) {
	b := newFakeBackend(t, 88)
	b.handle(CmdQueryUptime, "60")
	c := dial(t, b)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			up, err := c.QueryUptime(context.Background())
			if err == nil && up.Duration() != time.Minute {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestVersions(t *testing.T) {
	versions := Versions()
	assert.Equal(t, MinVersion, versions[0])
	assert.Equal(t, MaxVersion, versions[len(versions)-1])
	assert.NotContains(t, versions, versioning.Version(86))

	token, ok := Token(75)
	assert.True(t, ok)
	assert.Equal(t, "SweetRock", token)
	assert.True(t, Supported(57))
	assert.False(t, Supported(92))
}
