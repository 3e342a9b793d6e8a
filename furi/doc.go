// Package furi is the safe layer over the kernel primitives.
//
// Every type here owns exactly one kernel object, allocated by its
// constructor and released by Close. Kernel allocation never fails: the
// kernel crashes before handing out a nil handle, so constructors return no
// error. Recoverable kernel statuses are returned as Status errors unchanged;
// programmer misuse (double join, a guard released twice or from another
// thread) panics.
//
// Blocking calls take a Duration in kernel ticks; WaitForever never expires.
// None of them may be called from interrupt context.
package furi
