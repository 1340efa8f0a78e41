package vault

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/hmori/sshvault/pkg/crypto"
)

// On-disk layout, format version 1:
//
//	magic        4 bytes  "SVLT"
//	version      1 byte
//	kdf time     4 bytes  big-endian uint32
//	kdf memory   4 bytes  big-endian uint32, KiB
//	kdf threads  1 byte
//	salt        16 bytes
//	nonce       12 bytes
//	ciphertext   rest     AES-256-GCM, tag embedded
//
// The KDF parameters travel with the file so a vault created under older
// defaults keeps unlocking after the defaults change. The salt is generated
// once at vault creation; a passphrase change writes a fresh salt together
// with a full re-encryption.
const (
	// FormatVersion is the current vault file format version.
	FormatVersion = 1

	// SaltLength is the size of the KDF salt in bytes (128 bits).
	SaltLength = 16

	headerSize = 4 + 1 + 4 + 4 + 1 + SaltLength + crypto.NonceLength
)

var fileMagic = [4]byte{'S', 'V', 'L', 'T'}

// fileHeader is the decoded plaintext header of a vault file.
type fileHeader struct {
	Version byte
	KDF     crypto.Params
	Salt    []byte
	Nonce   []byte
}

// encodeFile assembles the on-disk byte layout from a header and ciphertext.
func encodeFile(h fileHeader, ciphertext []byte) []byte {
	buf := make([]byte, 0, headerSize+len(ciphertext))
	buf = append(buf, fileMagic[:]...)
	buf = append(buf, h.Version)
	buf = binary.BigEndian.AppendUint32(buf, h.KDF.Time)
	buf = binary.BigEndian.AppendUint32(buf, h.KDF.MemoryKiB)
	buf = append(buf, h.KDF.Parallelism)
	buf = append(buf, h.Salt...)
	buf = append(buf, h.Nonce...)
	buf = append(buf, ciphertext...)
	return buf
}

// decodeFile parses the on-disk layout. Anything that is recognizably not a
// version-1 vault file yields ErrFormat; the ciphertext itself is not
// inspected here, tampering with it surfaces later as an authentication
// failure.
func decodeFile(data []byte) (fileHeader, []byte, error) {
	if len(data) < headerSize {
		return fileHeader{}, nil, fmt.Errorf("%w: file too short (%d bytes)", ErrFormat, len(data))
	}
	if !bytes.Equal(data[:4], fileMagic[:]) {
		return fileHeader{}, nil, fmt.Errorf("%w: bad magic", ErrFormat)
	}

	h := fileHeader{Version: data[4]}
	if h.Version != FormatVersion {
		return fileHeader{}, nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, h.Version)
	}

	h.KDF.Time = binary.BigEndian.Uint32(data[5:9])
	h.KDF.MemoryKiB = binary.BigEndian.Uint32(data[9:13])
	h.KDF.Parallelism = data[13]
	if err := h.KDF.Validate(); err != nil {
		return fileHeader{}, nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	off := 14
	h.Salt = append([]byte(nil), data[off:off+SaltLength]...)
	off += SaltLength
	h.Nonce = append([]byte(nil), data[off:off+crypto.NonceLength]...)
	off += crypto.NonceLength

	ciphertext := append([]byte(nil), data[off:]...)
	return h, ciphertext, nil
}
