package hardware

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// GPU describes one accelerator reported by the driver tool.
type GPU struct {
	Index         int
	Name          string
	MemoryMiB     int
	DriverVersion string
}

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// QueryGPUs lists GPUs through the driver tool. A missing tool is an error;
// callers treat it as "no GPU".
func QueryGPUs(ctx context.Context) ([]GPU, error) {
	return queryGPUs(ctx, defaultRunner)
}

func queryGPUs(ctx context.Context, run commandRunner) ([]GPU, error) {
	out, err := run(ctx, DriverTool,
		"--query-gpu=index,name,memory.total,driver_version",
		"--format=csv,noheader,nounits")
	if err != nil {
		return nil, err
	}
	return parseGPUList(string(out))
}

func parseGPUList(output string) ([]GPU, error) {
	var gpus []GPU
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 4 {
			return nil, fmt.Errorf("parse %s output: unexpected line %q", DriverTool, line)
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		index, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("parse %s index %q: %w", DriverTool, fields[0], err)
		}
		memory, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("parse %s memory %q: %w", DriverTool, fields[2], err)
		}
		gpus = append(gpus, GPU{Index: index, Name: fields[1], MemoryMiB: memory, DriverVersion: fields[3]})
	}
	return gpus, nil
}
