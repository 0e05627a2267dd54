package ffi

/*
#include <stdlib.h>
#include <string.h>

// plain malloc, unlike C.malloc it reports failure with NULL instead of crashing
static char* smsguard_alloc(size_t n) { return (char*)malloc(n); }
*/
import "C"

import (
	"log"
	"unsafe"

	"github.com/phishti/smsguard/lib/smsguard"
)

// Init sets up logging and the process-wide detector. Returns 0 on success, -1 on failure.
// Repeated calls keep the installed detector and return 0.
func Init() (rc int32) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] init panic: %v", r)
			rc = -1
		}
	}()

	setupLog()
	if err := registry.Initialize(smsguard.Config{}); err != nil {
		log.Printf("[ERROR] failed to initialize detector: %v", err)
		return -1
	}
	return 0
}

// Analyze analyzes a NUL-terminated UTF-8 message and returns a caller-owned JSON string.
// Returns nil if msg is nil, not valid UTF-8, the detector is not initialized, or the result can't be
// serialized or allocated.
func Analyze(msg unsafe.Pointer) (res unsafe.Pointer) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] analyze panic: %v", r)
			res = nil
		}
	}()

	if msg == nil {
		log.Printf("[WARN] null message pointer provided")
		return nil
	}

	n := C.strlen((*C.char)(msg))
	raw := make([]byte, n)
	copy(raw, unsafe.Slice((*byte)(msg), n))
	data, err := analyzeText(registry, raw)
	if err != nil {
		log.Printf("[WARN] %v", err)
		return nil
	}

	p, err := toCString(data)
	if err != nil {
		log.Printf("[ERROR] can't return result: %v", err)
		return nil
	}
	return p
}

// IsReady returns 1 if the detector is initialized, 0 otherwise
func IsReady() int32 {
	if registry.IsReady() {
		return 1
	}
	return 0
}

// Release frees a buffer returned by Analyze or Stats. Nil is a no-op.
func Release(p unsafe.Pointer) {
	if p == nil {
		return
	}
	C.free(p)
}

// Stats returns caller-owned JSON with the detector description, nil only if allocation failed.
func Stats() (res unsafe.Pointer) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] stats panic: %v", r)
			res = nil
		}
	}()

	data, err := statsJSON(registry)
	if err != nil {
		log.Printf("[ERROR] %v", err)
		return nil
	}
	p, err := toCString(data)
	if err != nil {
		log.Printf("[ERROR] can't return stats: %v", err)
		return nil
	}
	return p
}

// CString copies s into a new malloc-ed NUL-terminated buffer, for Go hosts calling Analyze directly.
// Returns nil if allocation failed. The buffer must be freed with Release.
func CString(s string) unsafe.Pointer {
	p, err := toCString([]byte(s))
	if err != nil {
		log.Printf("[ERROR] can't make c string: %v", err)
		return nil
	}
	return p
}

// GoString copies a NUL-terminated C string into a Go string, nil gives an empty string
func GoString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	return C.GoString((*C.char)(p))
}

func toCString(data []byte) (unsafe.Pointer, error) {
	p := C.smsguard_alloc(C.size_t(len(data) + 1))
	if p == nil {
		return nil, ErrAllocation
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(p)), len(data)+1)
	copy(buf, data)
	buf[len(data)] = 0
	return unsafe.Pointer(p), nil
}
