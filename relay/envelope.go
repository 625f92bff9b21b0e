package relay

// Boundary is the fixed multipart boundary token. It contains '$', which
// mime/multipart refuses, so the envelope is written by hand.
const Boundary = "----------ThIs_Is_tHe_bouNdaRY_$"

// ContentType is the Content-Type header value of every relay request.
const ContentType = "multipart/form-data; boundary=" + Boundary

const crlf = "\r\n"

// preamble opens the single form part. Names are written verbatim.
func preamble(username, filename string) string {
	return "--" + Boundary + crlf +
		`Content-Disposition: form-data; name="` + username + `"; filename="` + filename + `"` + crlf +
		"Content-Type: application/octet-stream" + crlf +
		crlf
}

func epilogue() string {
	return crlf + "--" + Boundary + "--" + crlf
}

// EnvelopeLength returns the Content-Length of a relay carrying bodyLen
// file bytes.
func EnvelopeLength(username, filename string, bodyLen int64) int64 {
	return int64(len(preamble(username, filename))) + bodyLen + int64(len(epilogue()))
}
