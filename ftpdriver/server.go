package ftpdriver

import (
	ftpserver "github.com/fclairamb/ftpserverlib"
)

// Server runs the FTP engine with a Driver.
type Server struct {
	driver *Driver
	ftp    *ftpserver.FtpServer
}

// NewServer wraps d in an engine instance.
func NewServer(d *Driver) *Server {
	return &Server{driver: d, ftp: ftpserver.NewFtpServer(d)}
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	return s.ftp.ListenAndServe()
}

// Stop closes the listener. Sessions in flight finish their current command.
func (s *Server) Stop() {
	s.ftp.Stop()
}

// Driver returns the driver behind s.
func (s *Server) Driver() *Driver { return s.driver }
