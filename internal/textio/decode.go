// Package textio reads script and prompt documents into UTF-8 text.
package textio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// Encoding names reported by Decode.
const (
	EncodingUTF8    = "utf-8"
	EncodingGB18030 = "gb18030"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode converts raw bytes to a string. Valid UTF-8 (with or without a
// BOM) is used as is; anything else is decoded as GB18030, a superset of
// GBK and GB2312.
func Decode(data []byte) (string, string) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), EncodingUTF8
	}
	out, err := simplifiedchinese.GB18030.NewDecoder().Bytes(data)
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte("\ufffd"))), EncodingUTF8
	}
	return string(out), EncodingGB18030
}

// Supported document extensions.
const (
	ExtText = ".txt"
	ExtRTF  = ".rtf"
)

// IsDocument reports whether path has a supported document extension.
func IsDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtText, ExtRTF:
		return true
	}
	return false
}

// ReadDocument reads a .txt or .rtf file as trimmed plain text.
func ReadDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ExtRTF:
		return strings.TrimSpace(StripRTF(data)), nil
	case ExtText, "":
		text, _ := Decode(data)
		return strings.TrimSpace(text), nil
	default:
		return "", fmt.Errorf("unsupported document format: %s", filepath.Ext(path))
	}
}
