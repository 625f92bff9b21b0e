package ftpdriver

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	ftp2http "github.com/apnarm/ftp2http"
	"github.com/apnarm/ftp2http/postfs"
	"github.com/stretchr/testify/require"
)

func loggedIn(t *testing.T) (*clientDriver, *backend) {
	t.Helper()
	be := newBackend(t)
	d := newTestDriver(t, newGateway(t, be.URL), nil)
	cd, err := d.login(1, "192.0.2.1", "alice", "alice-pw")
	require.NoError(t, err)
	return cd, be
}

func TestModeOf(t *testing.T) {
	cases := map[int]string{
		os.O_RDONLY:                            "rb",
		os.O_WRONLY | os.O_CREATE | os.O_TRUNC: "wb",
		os.O_WRONLY | os.O_CREATE:              "wb",
		os.O_WRONLY | os.O_APPEND:              "ab",
		os.O_RDWR | os.O_CREATE:                "r+b",
	}
	for flag, want := range cases {
		require.Equal(t, want, modeOf(flag), "flag %#x", flag)
	}
}

func TestStoreRelaysUpload(t *testing.T) {
	cd, be := loggedIn(t)

	h, err := cd.GetHandle("/report.txt", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0)
	require.NoError(t, err)
	_, err = h.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = h.Write([]byte("world"))
	require.NoError(t, err)
	require.Empty(t, be.uploads(), "nothing is sent before close")
	require.NoError(t, h.Close())

	got := be.uploads()
	require.Len(t, got, 1)
	require.True(t, strings.HasPrefix(got[0].auth, "Basic "))
	require.Contains(t, got[0].body, `name="alice"; filename="report.txt"`)
	require.Contains(t, got[0].body, "\r\n\r\nhello world\r\n")
}

func TestCreateUsesWriteMode(t *testing.T) {
	cd, be := loggedIn(t)

	f, err := cd.Create("notes.txt")
	require.NoError(t, err)
	_, err = f.WriteString("x")
	require.NoError(t, err)
	info, err := f.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(1), info.Size())
	require.Equal(t, "notes.txt", info.Name())
	require.NoError(t, f.Close())
	require.Len(t, be.uploads(), 1)
}

func TestRejectedUploadSurfacesTransferError(t *testing.T) {
	cd, be := loggedIn(t)
	be.status.Store(http.StatusForbidden)

	h, err := cd.GetHandle("/report.txt", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0)
	require.NoError(t, err)
	_, _ = h.Write([]byte("data"))

	err = h.Close()
	var te *TransferError
	require.True(t, errors.As(err, &te), "got %v", err)
	require.Equal(t, 550, te.Reply.Code)
	require.Equal(t, "Error transferring to HTTP - 403: Forbidden. not welcome here", err.Error())
}

func TestTransferErrorDiscardsUpload(t *testing.T) {
	cd, be := loggedIn(t)

	h, err := cd.GetHandle("/report.txt", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0)
	require.NoError(t, err)
	_, _ = h.Write([]byte("partial"))

	fh := h.(*handle)
	fh.TransferError(errors.New("connection reset"))
	_, err = fh.Write([]byte("more"))
	require.Error(t, err)

	err = fh.Close()
	var te *TransferError
	require.True(t, errors.As(err, &te))
	require.Equal(t, 426, te.Reply.Code)
	require.Empty(t, be.uploads())
}

func TestRefusedOpens(t *testing.T) {
	cd, be := loggedIn(t)

	_, err := cd.GetHandle("/report.txt", os.O_WRONLY|os.O_CREATE, 512)
	require.ErrorIs(t, err, ErrResumeUnsupported)

	_, err = cd.GetHandle("/report.txt", os.O_WRONLY|os.O_APPEND, 0)
	require.ErrorIs(t, err, ftp2http.ErrUnsupportedOperation)

	_, err = cd.Open("/report.txt")
	require.ErrorIs(t, err, ftp2http.ErrUnsupportedOperation)

	_, err = cd.OpenFile("/sub/report.txt", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	require.ErrorIs(t, err, ftp2http.ErrUnsupportedOperation)

	require.Empty(t, be.uploads())
}

func TestHomeIsAnEmptyDirectory(t *testing.T) {
	cd, _ := loggedIn(t)

	info, err := cd.Stat("/")
	require.NoError(t, err)
	require.True(t, info.IsDir())

	entries, err := cd.ReadDir("/")
	require.NoError(t, err)
	require.Empty(t, entries)

	dir, err := cd.Open("/")
	require.NoError(t, err)
	names, err := dir.Readdirnames(-1)
	require.NoError(t, err)
	require.Empty(t, names)
	require.NoError(t, dir.Close())

	_, err = cd.Stat("/report.txt")
	require.ErrorIs(t, err, ftp2http.ErrUnsupportedOperation)
}

func TestMutatingVerbsRefused(t *testing.T) {
	cd, _ := loggedIn(t)

	errs := map[string]error{
		"mkdir":   cd.Mkdir("/d", 0o755),
		"rmdir":   cd.RemoveAll("/d"),
		"remove":  cd.Remove("/f"),
		"rename":  cd.Rename("/f", "/g"),
		"chmod":   cd.Chmod("/f", 0o600),
		"chown":   cd.Chown("/f", 0, 0),
		"chtimes": cd.Chtimes("/f", time.Now(), time.Now()),
	}
	for op, err := range errs {
		var opErr *postfs.OpError
		require.True(t, errors.As(err, &opErr), op)
		require.Equal(t, op, opErr.Op)
		require.ErrorIs(t, err, ftp2http.ErrUnsupportedOperation, op)
	}
}

func TestHandleIsWriteOnly(t *testing.T) {
	cd, _ := loggedIn(t)

	h, err := cd.GetHandle("/f.bin", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0)
	require.NoError(t, err)
	fh := h.(*handle)

	_, err = fh.Read(make([]byte, 4))
	require.ErrorIs(t, err, ErrNotReadable)
	pos, err := fh.Seek(0, 0)
	require.NoError(t, err)
	require.Zero(t, pos)
	_, err = fh.Seek(10, 0)
	require.Error(t, err)
	_, err = fh.WriteAt([]byte("ab"), 0)
	require.NoError(t, err)
	_, err = fh.WriteAt([]byte("cd"), 0)
	require.ErrorIs(t, err, ErrResumeUnsupported)
	require.NoError(t, fh.Close())
}
