package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// CheckFFmpeg resolves binary and reports the version it prints. A binary
// that is found but fails to run is reported unavailable.
func CheckFFmpeg(ctx context.Context, binary string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Decodes media into 16 kHz mono audio",
	}
	name := strings.TrimSpace(binary)
	if name == "" {
		name = "ffmpeg"
	}
	result.Command = name

	resolved, err := exec.LookPath(name)
	if err != nil {
		result.Detail = fmt.Sprintf("binary %q not found", name)
		return result
	}
	result.Command = resolved

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, resolved, "-hide_banner", "-version").Output()
	if err != nil {
		result.Detail = fmt.Sprintf("%s -version failed: %v", resolved, err)
		return result
	}
	result.Available = true
	result.Detail = parseFFmpegVersion(string(out))
	return result
}

// parseFFmpegVersion extracts "7.1" from "ffmpeg version 7.1 Copyright ...".
func parseFFmpegVersion(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	fields := strings.Fields(line)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "version" {
			return "version " + fields[i+1]
		}
	}
	return ""
}
