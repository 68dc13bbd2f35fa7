// SPDX-License-Identifier: MPL-2.0

package overlay

import (
	"archive/zip"
	"bytes"
)

func emptyZip() *bytes.Reader {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_ = zw.Close()
	return bytes.NewReader(buf.Bytes())
}
