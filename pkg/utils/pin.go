package utils

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// GeneratePickupPIN returns a 4-digit code in the range 1000-9999.
// The PIN is generated once at booking time and never rotated; it only
// needs to be unguessable within a single driver's passenger list.
func GeneratePickupPIN() string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing means the platform RNG is broken;
		// nothing sensible to fall back to
		panic(err)
	}
	num := binary.BigEndian.Uint32(buf[:])
	return fmt.Sprintf("%04d", 1000+num%9000)
}
