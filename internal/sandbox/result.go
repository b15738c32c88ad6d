package sandbox

// Mechanisms reported by successful activations.
const (
	MechanismSeccomp   = "seccomp"
	MechanismPrctl     = "prctl"
	MechanismJobObject = "job object"
	MechanismPledge    = "pledge"
)

// Result is the outcome of an activation attempt.
//
// Message is empty on success and a human readable diagnostic, including the
// operating system's error text, on failure. Mechanism names the strategy
// that succeeded.
type Result struct {
	Success   bool
	Message   string
	Mechanism string

	// Err is the failure, matchable with errors.Is against the Err* kinds.
	Err error
}

func succeeded(mechanism string) Result {
	return Result{Success: true, Mechanism: mechanism}
}

func failed(err error) Result {
	return Result{Message: err.Error(), Err: err}
}

func (r Result) String() string {
	if r.Success {
		return "sandbox activated using " + r.Mechanism
	}
	return r.Message
}
