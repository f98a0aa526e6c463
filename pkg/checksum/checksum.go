// Package checksum 提供文件 SHA-256 摘要计算
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
)

// FileSHA256 computes the hex encoded SHA-256 digest of a file by streaming
// FileSHA256 以流式方式计算文件的 SHA-256 摘要（hex 编码）
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "read %s", path)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
