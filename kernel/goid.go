package kernel

import (
	"bytes"
	"runtime"
	"strconv"
)

// ThreadID identifies a thread of execution. The host kernel runs every
// kernel thread on its own goroutine and uses the goroutine id.
type ThreadID uint64

var goroutinePrefix = []byte("goroutine ")

// CurrentThreadID returns the id of the calling thread.
func CurrentThreadID() ThreadID {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		panic("kernel: cannot parse goroutine id: " + err.Error())
	}
	return ThreadID(id)
}
