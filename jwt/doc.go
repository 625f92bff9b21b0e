// Package jwt signs and verifies the per-upload tokens the gateway attaches
// to relay requests. A receiving backend verifies them with the same
// package (see middleware.UploadToken).
package jwt
