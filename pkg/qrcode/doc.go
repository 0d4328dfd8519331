// Package qrcode renders otpauth:// provisioning URIs as PNG QR codes using
// github.com/skip2/go-qrcode, either as raw bytes or as a data URI.
package qrcode
