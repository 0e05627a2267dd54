// Command clib builds the C shared library exposing the detector:
//
//	go build -buildmode=c-shared -o libsmsguard.so ./clib
//
// cgo writes libsmsguard.h with the declarations below. Strings returned by smsguard_analyze and
// smsguard_stats are owned by the caller and must be freed with smsguard_release, once.
package main

/*
#include <stdint.h>
*/
import "C"

import (
	"unsafe"

	"github.com/phishti/smsguard/lib/ffi"
)

// smsguard_init initializes the detector, returns 0 on success and negative value on failure.
//
//export smsguard_init
func smsguard_init() C.int32_t {
	return C.int32_t(ffi.Init())
}

// smsguard_analyze returns JSON result for a NUL-terminated UTF-8 message, or NULL on any error.
//
//export smsguard_analyze
func smsguard_analyze(msg *C.char) *C.char {
	return (*C.char)(ffi.Analyze(unsafe.Pointer(msg)))
}

// smsguard_is_ready returns 1 if the detector is initialized, 0 otherwise.
//
//export smsguard_is_ready
func smsguard_is_ready() C.int32_t {
	return C.int32_t(ffi.IsReady())
}

// smsguard_release frees a string returned by smsguard_analyze or smsguard_stats, NULL is ignored.
//
//export smsguard_release
func smsguard_release(s *C.char) {
	ffi.Release(unsafe.Pointer(s))
}

// smsguard_stats returns JSON with the model description.
//
//export smsguard_stats
func smsguard_stats() *C.char {
	return (*C.char)(ffi.Stats())
}

func main() {}
