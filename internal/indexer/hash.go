package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

const hashBlockSize = 4096

// HashFile returns the lowercase hex SHA-256 digest of the file's bytes
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	buf := make([]byte, hashBlockSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
