package wal

import "hash/crc32"

func crc32Payload(payload []byte) uint32 {
	return crc32.ChecksumIEEE(payload)
}
