package ftpdriver

import (
	"fmt"
	"net"
	"net/http"
	"net/textproto"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

var pasvReply = regexp.MustCompile(`\((\d+),(\d+),(\d+),(\d+),(\d+),(\d+)\)`)

type ftpClient struct {
	t    *testing.T
	conn *textproto.Conn
}

func (c *ftpClient) cmd(expect int, format string, args ...any) (int, string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.PrintfLine(format, args...))
	code, msg, err := c.conn.ReadResponse(expect)
	if expect > 0 {
		require.NoError(c.t, err, "%s -> %d %s", fmt.Sprintf(format, args...), code, msg)
	}
	return code, msg
}

func (c *ftpClient) passive() net.Conn {
	c.t.Helper()
	_, msg := c.cmd(227, "PASV")
	m := pasvReply.FindStringSubmatch(msg)
	require.NotNil(c.t, m, "unexpected PASV reply %q", msg)
	hi, _ := strconv.Atoi(m[5])
	lo, _ := strconv.Atoi(m[6])
	addr := net.JoinHostPort(m[1]+"."+m[2]+"."+m[3]+"."+m[4], strconv.Itoa(hi*256+lo))
	data, err := net.Dial("tcp", addr)
	require.NoError(c.t, err)
	return data
}

// store runs a full STOR and returns the final reply.
func (c *ftpClient) store(name, payload string) (int, string) {
	c.t.Helper()
	data := c.passive()
	c.cmd(150, "STOR %s", name)
	_, err := data.Write([]byte(payload))
	require.NoError(c.t, err)
	require.NoError(c.t, data.Close())
	code, msg, _ := c.conn.ReadResponse(0)
	return code, msg
}

func startServer(t *testing.T, be *backend) *ftpClient {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	d := newTestDriver(t, newGateway(t, be.URL), func(c *Config) {
		c.ListenAddr = ""
		c.Listener = ln
	})
	srv := NewServer(d)
	go func() { _ = srv.ListenAndServe() }()
	t.Cleanup(srv.Stop)

	conn, err := textproto.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, _, err = conn.ReadResponse(220)
	require.NoError(t, err)
	return &ftpClient{t: t, conn: conn}
}

func TestFTPStoreEndToEnd(t *testing.T) {
	be := newBackend(t)
	c := startServer(t, be)

	c.cmd(331, "USER alice")
	c.cmd(230, "PASS alice-pw")
	c.cmd(200, "TYPE I")

	code, msg := c.store("report.txt", "hello over ftp")
	require.Equal(t, 2, code/100, "final reply %d %s", code, msg)

	got := be.uploads()
	require.Len(t, got, 1)
	require.Contains(t, got[0].body, `filename="report.txt"`)
	require.Contains(t, got[0].body, "hello over ftp")

	c.cmd(221, "QUIT")
}

func TestFTPEmptyStoreIsNotRelayed(t *testing.T) {
	be := newBackend(t)
	c := startServer(t, be)

	c.cmd(331, "USER alice")
	c.cmd(230, "PASS alice-pw")
	c.cmd(200, "TYPE I")

	code, msg := c.store("empty.txt", "")
	require.Equal(t, 2, code/100, "final reply %d %s", code, msg)
	require.Empty(t, be.uploads())

	c.cmd(221, "QUIT")
}

func TestFTPStoreRejectedByBackend(t *testing.T) {
	be := newBackend(t)
	be.status.Store(http.StatusForbidden)
	c := startServer(t, be)

	c.cmd(331, "USER alice")
	c.cmd(230, "PASS alice-pw")
	c.cmd(200, "TYPE I")

	code, msg := c.store("report.txt", "payload")
	require.NotEqual(t, 2, code/100, "final reply %d %s", code, msg)
	require.Contains(t, msg, "Error transferring to HTTP - 403: Forbidden")
}

func TestFTPWrongPasswordRejected(t *testing.T) {
	be := newBackend(t)
	c := startServer(t, be)

	c.cmd(331, "USER alice")
	code, _ := c.cmd(0, "PASS nope")
	require.Equal(t, 530, code)
}
