// Package postfs is the filesystem an FTP session sees: a single, empty,
// write-only home directory. Opening a file for writing inside the home
// scope starts a relay upload; every other verb is refused or answers with
// a constant.
package postfs

import (
	"errors"
	"path"
	"strings"
	"time"

	"github.com/apnarm/ftp2http/relay"
)

var (
	// ErrUnsupportedOperation is wrapped by every refused filesystem verb.
	ErrUnsupportedOperation = errors.New("filesystem operations are disabled")
	// ErrInvalidPath is returned for paths outside the home scope.
	ErrInvalidPath = errors.New("path outside home scope")
)

// OpError records a refused operation and the path it was attempted on.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	return e.Op + ": " + e.Err.Error() + "."
}

func (e *OpError) Unwrap() error { return e.Err }

func refuse(op, p string) error {
	return &OpError{Op: op, Path: p, Err: ErrUnsupportedOperation}
}

// PasswordLookup resolves the password cached for a user at login.
type PasswordLookup interface {
	CachedPassword(username string) (string, bool)
}

// Uploads creates the sink for one opened file.
type Uploads interface {
	NewUpload(filename, username, password string) *relay.Upload
}

// FS is bound to one session. It holds no mutable state and is safe for
// concurrent use.
type FS struct {
	root      string
	passwords PasswordLookup
	uploads   Uploads
}

// New returns the filesystem of username. passwords may be nil when
// password caching is disabled.
func New(username string, passwords PasswordLookup, uploads Uploads) *FS {
	return &FS{
		root:      path.Clean("/" + username),
		passwords: passwords,
		uploads:   uploads,
	}
}

// Root returns the home scope, "/<username>".
func (fs *FS) Root() string { return fs.root }

// ValidPath reports whether p lies inside the home scope after
// normalization. The comparison adds a trailing separator to both sides so
// "/alice2" is not inside "/alice".
func (fs *FS) ValidPath(p string) bool {
	root := withSlash(path.Clean(fs.root))
	candidate := withSlash(path.Clean(p))
	return strings.HasPrefix(candidate, root)
}

// Open starts an upload for p. mode must be "w" or "wb" and p must name a
// file directly inside the home scope. The owning user is the base name of
// the file's directory; the relay password comes from the session cache.
func (fs *FS) Open(p string, mode string) (*relay.Upload, error) {
	if mode != "w" && mode != "wb" {
		return nil, refuse("open mode "+mode, p)
	}
	if !fs.ValidPath(p) {
		return nil, &OpError{Op: "open", Path: p, Err: ErrInvalidPath}
	}

	dir, filename := path.Split(path.Clean(p))
	dir = path.Clean(dir)
	if filename == "" || dir != fs.root {
		// No directory semantics: only direct children of home are files.
		return nil, refuse("open", p)
	}

	username := path.Base(dir)
	password := ""
	if fs.passwords != nil {
		if pw, ok := fs.passwords.CachedPassword(username); ok {
			password = pw
		}
	}
	return fs.uploads.NewUpload(filename, username, password), nil
}

// Mkstemp is refused.
func (fs *FS) Mkstemp(suffix, prefix, dir string) (*relay.Upload, error) {
	return nil, refuse("mkstemp", dir)
}

// Chdir accepts every path; validity is checked separately.
func (fs *FS) Chdir(string) error { return nil }

// Mkdir is refused.
func (fs *FS) Mkdir(p string) error { return refuse("mkdir", p) }

// ListDir always returns an empty listing.
func (fs *FS) ListDir(string) ([]string, error) { return []string{}, nil }

// Rmdir is refused.
func (fs *FS) Rmdir(p string) error { return refuse("rmdir", p) }

// Remove is refused.
func (fs *FS) Remove(p string) error { return refuse("remove", p) }

// Rename is refused.
func (fs *FS) Rename(src, _ string) error { return refuse("rename", src) }

// Chmod is refused.
func (fs *FS) Chmod(p string, _ uint32) error { return refuse("chmod", p) }

// Stat is refused.
func (fs *FS) Stat(p string) error { return refuse("stat", p) }

// Lstat is refused.
func (fs *FS) Lstat(p string) error { return refuse("lstat", p) }

// Readlink is refused.
func (fs *FS) Readlink(p string) (string, error) { return "", refuse("readlink", p) }

// IsFile is always false.
func (fs *FS) IsFile(string) bool { return false }

// IsLink is always false.
func (fs *FS) IsLink(string) bool { return false }

// IsDir is true only for the home scope itself.
func (fs *FS) IsDir(p string) bool { return p == fs.root }

// GetSize is refused.
func (fs *FS) GetSize(p string) (int64, error) { return 0, refuse("getsize", p) }

// GetMTime is refused.
func (fs *FS) GetMTime(p string) (time.Time, error) { return time.Time{}, refuse("getmtime", p) }

// RealPath returns p unchanged.
func (fs *FS) RealPath(p string) string { return p }

// LExists is always false.
func (fs *FS) LExists(string) bool { return false }

func withSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}
