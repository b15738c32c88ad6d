//go:build windows

package sandbox

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// jobAPI is the set of job object calls activation needs.
type jobAPI interface {
	create() (windows.Handle, error)
	query(job windows.Handle, limits *windows.JOBOBJECT_BASIC_LIMIT_INFORMATION) error
	set(job windows.Handle, limits *windows.JOBOBJECT_BASIC_LIMIT_INFORMATION) error
	assign(job windows.Handle) error
}

type jobBackend struct {
	jobs jobAPI
}

func newBackend() Backend {
	return &jobBackend{jobs: win32Jobs{}}
}

func (b *jobBackend) Name() string {
	return "windows"
}

// Activate binds the process to a job object that allows one active
// process. The job handle is never closed; the job lives as long as the
// process.
func (b *jobBackend) Activate() Result {
	job, err := b.jobs.create()
	if err != nil {
		return failed(&ActivationError{Kind: ErrContainerCreate, Call: "CreateJobObject", Err: err})
	}

	var limits windows.JOBOBJECT_BASIC_LIMIT_INFORMATION
	if err := b.jobs.query(job, &limits); err != nil {
		return failed(&ActivationError{Kind: ErrContainerConfigure, Call: "QueryInformationJobObject", Err: err})
	}

	limits.ActiveProcessLimit = 1
	limits.LimitFlags |= windows.JOB_OBJECT_LIMIT_ACTIVE_PROCESS
	if err := b.jobs.set(job, &limits); err != nil {
		return failed(&ActivationError{Kind: ErrContainerConfigure, Call: "SetInformationJobObject", Err: err})
	}

	if err := b.jobs.assign(job); err != nil {
		return failed(&ActivationError{Kind: ErrContainerBind, Call: "AssignProcessToJobObject", Err: err})
	}
	return succeeded(MechanismJobObject)
}

type win32Jobs struct{}

func (win32Jobs) create() (windows.Handle, error) {
	return windows.CreateJobObject(nil, nil)
}

func (win32Jobs) query(job windows.Handle, limits *windows.JOBOBJECT_BASIC_LIMIT_INFORMATION) error {
	return windows.QueryInformationJobObject(job, windows.JobObjectBasicLimitInformation,
		uintptr(unsafe.Pointer(limits)), uint32(unsafe.Sizeof(*limits)), nil)
}

func (win32Jobs) set(job windows.Handle, limits *windows.JOBOBJECT_BASIC_LIMIT_INFORMATION) error {
	_, err := windows.SetInformationJobObject(job, windows.JobObjectBasicLimitInformation,
		uintptr(unsafe.Pointer(limits)), uint32(unsafe.Sizeof(*limits)))
	return err
}

func (win32Jobs) assign(job windows.Handle) error {
	return windows.AssignProcessToJobObject(job, windows.CurrentProcess())
}
