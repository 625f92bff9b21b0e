package ftpdriver

import (
	"context"
	"log/slog"
	"os"
	"path"
	"time"

	ftp2http "github.com/apnarm/ftp2http"
	"github.com/apnarm/ftp2http/postfs"
	ftpserver "github.com/fclairamb/ftpserverlib"
	"github.com/spf13/afero"
	"github.com/spf13/afero/mem"
)

var (
	_ ftpserver.ClientDriver                      = (*clientDriver)(nil)
	_ ftpserver.ClientDriverExtentionFileTransfer = (*clientDriver)(nil)
)

// clientDriver is the afero.Fs one FTP login sees. The FTP root is the
// session's home scope.
type clientDriver struct {
	ctx    context.Context
	gw     *ftp2http.Gateway
	sess   *ftp2http.Session
	fs     *postfs.FS
	logger *slog.Logger
	home   *mem.FileData
}

func newClientDriver(ctx context.Context, gw *ftp2http.Gateway, sess *ftp2http.Session, fs *postfs.FS, logger *slog.Logger) *clientDriver {
	home := mem.CreateDir(fs.Root())
	mem.SetMode(home, os.ModeDir|0o755)
	return &clientDriver{
		ctx:    ctx,
		gw:     gw,
		sess:   sess,
		fs:     fs,
		logger: logger,
		home:   home,
	}
}

// resolve maps a client path onto the home scope.
func (c *clientDriver) resolve(name string) string {
	return path.Join(c.fs.Root(), path.Clean("/"+name))
}

func (c *clientDriver) Name() string { return "ftp2http" }

func (c *clientDriver) Create(name string) (afero.File, error) {
	return c.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
}

func (c *clientDriver) Mkdir(name string, _ os.FileMode) error {
	return c.fs.Mkdir(c.resolve(name))
}

func (c *clientDriver) MkdirAll(name string, _ os.FileMode) error {
	return c.fs.Mkdir(c.resolve(name))
}

// Open serves the empty home listing. Anything else is a read and is refused.
func (c *clientDriver) Open(name string) (afero.File, error) {
	p := c.resolve(name)
	if c.fs.IsDir(p) {
		return mem.NewFileHandle(c.home), nil
	}
	return c.OpenFile(name, os.O_RDONLY, 0)
}

func (c *clientDriver) OpenFile(name string, flag int, _ os.FileMode) (afero.File, error) {
	h, err := c.openUpload(name, flag)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// GetHandle is used by the engine for STOR and APPE.
func (c *clientDriver) GetHandle(name string, flags int, offset int64) (ftpserver.FileTransfer, error) {
	if offset != 0 {
		return nil, &postfs.OpError{Op: "rest", Path: c.resolve(name), Err: ErrResumeUnsupported}
	}
	h, err := c.openUpload(name, flags)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// ReadDir lists the home scope, which is always empty.
func (c *clientDriver) ReadDir(name string) ([]os.FileInfo, error) {
	names, err := c.fs.ListDir(c.resolve(name))
	if err != nil {
		return nil, err
	}
	return make([]os.FileInfo, 0, len(names)), nil
}

func (c *clientDriver) Remove(name string) error {
	return c.fs.Remove(c.resolve(name))
}

func (c *clientDriver) RemoveAll(name string) error {
	return c.fs.Rmdir(c.resolve(name))
}

func (c *clientDriver) Rename(oldname, newname string) error {
	return c.fs.Rename(c.resolve(oldname), c.resolve(newname))
}

func (c *clientDriver) Stat(name string) (os.FileInfo, error) {
	p := c.resolve(name)
	if c.fs.IsDir(p) {
		return mem.GetFileInfo(c.home), nil
	}
	return nil, c.fs.Stat(p)
}

func (c *clientDriver) Chmod(name string, mode os.FileMode) error {
	return c.fs.Chmod(c.resolve(name), uint32(mode.Perm()))
}

func (c *clientDriver) Chown(name string, _, _ int) error {
	return &postfs.OpError{Op: "chown", Path: c.resolve(name), Err: postfs.ErrUnsupportedOperation}
}

func (c *clientDriver) Chtimes(name string, _, _ time.Time) error {
	return &postfs.OpError{Op: "chtimes", Path: c.resolve(name), Err: postfs.ErrUnsupportedOperation}
}

func (c *clientDriver) openUpload(name string, flag int) (*handle, error) {
	p := c.resolve(name)
	it, err := c.gw.OpenUpload(c.ctx, c.sess, p, modeOf(flag))
	if err != nil {
		return nil, err
	}
	return newHandle(c.ctx, path.Base(p), it, c.logger), nil
}

// modeOf maps open(2) flags onto the mode strings of postfs.FS.Open.
func modeOf(flag int) string {
	switch {
	case flag&os.O_APPEND != 0:
		return "ab"
	case flag&(os.O_WRONLY|os.O_RDWR) == os.O_WRONLY:
		return "wb"
	case flag&os.O_RDWR != 0:
		return "r+b"
	default:
		return "rb"
	}
}
