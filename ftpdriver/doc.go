// Package ftpdriver binds a [ftp2http.Gateway] to the ftpserverlib protocol
// engine.
//
// [Driver] implements the engine's MainDriver: it hands out listener
// settings, enforces connection limits and authenticates logins through the
// gateway. Each login gets a client driver exposing the session's home scope
// as the FTP root. Stored files become relay uploads; every other verb is
// refused.
//
// # What this package must NOT do
//
//   - Decide authentication or relay outcomes. The gateway owns both.
//   - Serve any file content back to clients.
package ftpdriver
