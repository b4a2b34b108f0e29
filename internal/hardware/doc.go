// Package hardware chooses the compute device and numeric precision a job runs
// on.
//
// A Resolver walks an ordered list of (backend, precision) candidates, probes
// each by loading a minimal model, always tears the probe down, and settles on
// the first candidate that works. When nothing works it returns a
// NoUsableDeviceError naming every attempt. Locks serialize jobs per backend
// both inside the process and across processes via lock files.
package hardware
