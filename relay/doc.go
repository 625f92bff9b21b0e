// Package relay turns one FTP upload into one HTTP multipart POST.
//
// An [Upload] accumulates the file body in a spill-to-disk buffer and sends
// nothing until [Upload.Close]. Close measures the assembled envelope,
// performs a single blocking POST to the configured target and maps the
// outcome to nil or [*UnexpectedHTTPResponse].
//
// # Wire format
//
//	POST <target>
//	Content-Type: multipart/form-data; boundary=----------ThIs_Is_tHe_bouNdaRY_$
//	Content-Length: <exact byte count>
//	Authorization: Basic <base64(username:password)>   (only with a password)
//
//	------------ThIs_Is_tHe_bouNdaRY_$
//	Content-Disposition: form-data; name="<username>"; filename="<filename>"
//	Content-Type: application/octet-stream
//
//	<raw file bytes>
//	------------ThIs_Is_tHe_bouNdaRY_$--
//
// # What this package must NOT do
//
//   - Retry a failed relay.
//   - Start network I/O before Close.
//   - Decide the FTP reply; callers translate the returned error.
package relay
