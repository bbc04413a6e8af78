// internal/room/code.go
package room

import "math/rand"

// codeAlphabet skips 0/O and 1/I so codes survive being read aloud.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// CodeLength is the length of a shareable room code.
const CodeLength = 6

// NewCode returns a random shareable room code. The Store retries on the
// (unlikely) collision with a live room.
func NewCode() string {
	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}
