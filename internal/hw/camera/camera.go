package camera

// Trigger is the high-level capture interface used by the run scheduler.
// Capture is called once per visited sample with the running sample ordinal
// and the camera port identifier; the return value is only checked for
// errors, no image data flows through this interface.
type Trigger interface {
	Capture(sample, port int) error
}
