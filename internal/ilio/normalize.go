package ilio

import (
	"bytes"

	"golang.org/x/text/unicode/norm"
)

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// normalize performs input normalization at the IL text parser's boundary:
// strip a UTF-8 BOM if present, then apply Unicode NFC normalization. IL
// text files are themselves source files fed through the same kind of
// front door as any surface-language file, so the same two passes apply.
func normalize(src []byte) []byte {
	src = bytes.TrimPrefix(src, bomUTF8)
	if !norm.NFC.IsNormal(src) {
		src = norm.NFC.Bytes(src)
	}
	return src
}
