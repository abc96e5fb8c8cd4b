package gpu

import (
	"os"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/coregfx/turbo/internal/exitcode"
)

// fatal logs msg with err through the device's error logger and terminates
// the process with the device-initialization exit code. The core has no
// meaningful recovery path for FatalInit/PoolExhausted/BackendFailure
// conditions (§7). It generalizes the teacher's bare orPanic/Fatal helpers
// (vulkan-go-asche's errors.go) to log through an injected logger first.
// Not every fatal path goes through it: failed backend calls panic via
// mustSucceed, and PoolExhausted panics inside internal/handle.
func (d *Device) fatal(msg string, err error) {
	if d.log != nil && d.log.Error != nil {
		d.log.Error.Printf("%s: %v", msg, err)
	}
	os.Exit(int(exitcode.RHICriticalError))
}

// mustSucceed panics with a BackendFailure-shaped error when ret is not
// vk.Success. It guards every backend call whose failure is fatal, during
// Init and afterwards; unlike (*Device).fatal it does not log through the
// device's Loggers.
func mustSucceed(ret vk.Result, action string) {
	if ret != vk.Success {
		panic(&backendError{action: action, result: ret})
	}
}

type backendError struct {
	action string
	result vk.Result
}

func (e *backendError) Error() string {
	return "vulkan: " + e.action + " failed with result " + itoa(int32(e.result))
}

func itoa(v int32) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func isSwapchainStale(ret vk.Result) bool {
	return ret == vk.ErrorOutOfDate || ret == vk.Suboptimal
}

// unsafePointer adapts a typed Vulkan pNext-chain struct to the
// unsafe.Pointer the vulkan-go bindings expect for their PNext fields.
func unsafePointer[T any](v *T) unsafe.Pointer {
	return unsafe.Pointer(v)
}
