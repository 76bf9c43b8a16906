package hook

// Reason tells the configuration hook why it is being run.
type Reason string

const (
	ReasonPreinit Reason = "PREINIT"
	ReasonMedium  Reason = "MEDIUM"
	ReasonBound   Reason = "BOUND"
	ReasonRenew   Reason = "RENEW"
	ReasonRebind  Reason = "REBIND"
	ReasonReboot  Reason = "REBOOT"
	ReasonStop    Reason = "STOP"
	ReasonRelease Reason = "RELEASE"
	ReasonFail    Reason = "FAIL"
	ReasonExpire  Reason = "EXPIRE"
	ReasonTimeout Reason = "TIMEOUT"
	ReasonNBI     Reason = "NBI"
)

// Binds reports whether the reason installs a new lease.
func (r Reason) Binds() bool {
	switch r {
	case ReasonBound, ReasonRenew, ReasonRebind, ReasonReboot, ReasonTimeout:
		return true
	}
	return false
}

// Unbinds reports whether the reason removes the old lease.
func (r Reason) Unbinds() bool {
	switch r {
	case ReasonExpire, ReasonFail, ReasonRelease, ReasonStop:
		return true
	}
	return false
}
