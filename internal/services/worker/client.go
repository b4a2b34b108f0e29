package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"textifier/internal/logging"
	"textifier/internal/services"
)

const (
	defaultStartupTimeout = 5 * time.Minute
	defaultGracePeriod    = 5 * time.Second
	maxLineBytes          = 64 << 20
	stderrTail            = 16 * 1024
)

// ErrExited reports that the worker process ended while a reply was expected.
var ErrExited = errors.New("worker exited")

// Spec describes how to launch a worker.
type Spec struct {
	// Name labels the worker in logs and errors.
	Name           string
	Command        string
	Args           []string
	Env            []string
	StartupTimeout time.Duration
	GracePeriod    time.Duration
	Logger         *slog.Logger
}

// Client is a running worker.
type Client struct {
	name   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan []byte
	stderr *tailBuffer
	logger *slog.Logger
	grace  time.Duration
	hello  Hello

	exited  chan struct{}
	waitErr error

	mu     sync.Mutex
	nextID uint64
	closed bool
}

// StartError reports a worker that failed before becoming ready.
type StartError struct {
	Name   string
	Stderr string
	Err    error
}

func (e *StartError) Error() string {
	msg := fmt.Sprintf("start %s worker: %v", e.Name, e.Err)
	if tail := strings.TrimSpace(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func (e *StartError) Unwrap() error { return e.Err }

// Start launches the worker and waits for its ready line.
func Start(ctx context.Context, spec Spec) (*Client, error) {
	if strings.TrimSpace(spec.Command) == "" {
		return nil, &StartError{Name: spec.Name, Err: services.Wrap(services.ErrConfiguration, "worker", "start", "no command configured", nil)}
	}
	if spec.StartupTimeout <= 0 {
		spec.StartupTimeout = defaultStartupTimeout
	}
	if spec.GracePeriod <= 0 {
		spec.GracePeriod = defaultGracePeriod
	}

	cmd := exec.Command(spec.Command, spec.Args...) //nolint:gosec
	cmd.Env = append(os.Environ(), spec.Env...)
	stderr := &tailBuffer{limit: stderrTail}
	cmd.Stderr = stderr
	cmd.WaitDelay = spec.GracePeriod
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &StartError{Name: spec.Name, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &StartError{Name: spec.Name, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &StartError{Name: spec.Name, Err: services.Wrap(services.ErrExternalTool, "worker", "start", spec.Command, err)}
	}

	c := &Client{
		name:   spec.Name,
		cmd:    cmd,
		stdin:  stdin,
		lines:  make(chan []byte, 1),
		stderr: stderr,
		logger: logging.NewComponentLogger(spec.Logger, "worker").With(logging.String("worker", spec.Name)),
		grace:  spec.GracePeriod,
		exited: make(chan struct{}),
	}
	go c.readLoop(stdout)

	timer := time.NewTimer(spec.StartupTimeout)
	defer timer.Stop()
	select {
	case line, ok := <-c.lines:
		if !ok {
			c.kill()
			return nil, &StartError{Name: spec.Name, Stderr: stderr.String(), Err: ErrExited}
		}
		if err := json.Unmarshal(line, &c.hello); err != nil {
			c.kill()
			return nil, &StartError{Name: spec.Name, Stderr: stderr.String(), Err: fmt.Errorf("malformed ready line %q: %w", truncate(line), err)}
		}
		if c.hello.Type != TypeReady {
			c.kill()
			msg := c.hello.Error
			if msg == "" {
				msg = fmt.Sprintf("unexpected message type %q", c.hello.Type)
			}
			return nil, &StartError{Name: spec.Name, Stderr: stderr.String(), Err: errors.New(msg)}
		}
	case <-timer.C:
		c.kill()
		return nil, &StartError{Name: spec.Name, Stderr: stderr.String(),
			Err: services.Wrap(services.ErrTimeout, "worker", "start", fmt.Sprintf("not ready after %s", spec.StartupTimeout), nil)}
	case <-ctx.Done():
		c.kill()
		return nil, ctx.Err()
	}

	c.logger.Debug("worker ready",
		logging.String("model", c.hello.Model),
		logging.String(logging.FieldDevice, c.hello.Device),
		logging.Int("pid", cmd.Process.Pid),
	)
	return c, nil
}

// Hello returns the worker's ready message.
func (c *Client) Hello() Hello { return c.hello }

func (c *Client) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		c.lines <- append([]byte(nil), line...)
	}
	if err := scanner.Err(); err != nil {
		c.logger.Warn("worker output unreadable", logging.Error(err))
	}
	close(c.lines)
	c.waitErr = c.cmd.Wait()
	close(c.exited)
}

// Call sends one request and decodes the result into out (which may be nil).
// Cancelling ctx while a call is in flight kills the worker.
func (c *Client) Call(ctx context.Context, method string, params, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("%s worker: %w", c.name, ErrExited)
	}
	c.nextID++
	req := Request{ID: c.nextID, Method: method, Params: params}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}
	if _, err := c.stdin.Write(append(payload, '\n')); err != nil {
		return c.exitError(method, err)
	}

	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				return c.exitError(method, nil)
			}
			var resp Response
			if err := json.Unmarshal(line, &resp); err != nil {
				return fmt.Errorf("%s worker: malformed response %q: %w", c.name, truncate(line), err)
			}
			if resp.ID != req.ID {
				c.logger.Warn("discarding stale worker response",
					logging.Any("response_id", resp.ID),
					logging.Any("request_id", req.ID),
				)
				continue
			}
			if resp.Error != nil {
				return fmt.Errorf("%s worker %s: %w", c.name, method, resp.Error)
			}
			if out == nil || len(resp.Result) == 0 {
				return nil
			}
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("%s worker %s: decode result: %w", c.name, method, err)
			}
			return nil
		case <-ctx.Done():
			c.closed = true
			c.kill()
			return ctx.Err()
		}
	}
}

func (c *Client) exitError(method string, cause error) error {
	c.closed = true
	go c.drain()
	<-c.exited
	err := fmt.Errorf("%s worker %s: %w", c.name, method, ErrExited)
	if cause != nil {
		err = fmt.Errorf("%w: %w", err, cause)
	}
	if c.waitErr != nil {
		err = fmt.Errorf("%w (%v)", err, c.waitErr)
	}
	if tail := strings.TrimSpace(c.stderr.String()); tail != "" {
		err = fmt.Errorf("%w: %s", err, tail)
	}
	return err
}

// Stderr returns the retained tail of the worker's diagnostic output.
func (c *Client) Stderr() string { return c.stderr.String() }

// Close asks the worker to shut down and kills it after the grace period.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.exited
		return nil
	}
	c.closed = true
	c.nextID++
	payload, _ := json.Marshal(Request{ID: c.nextID, Method: MethodShutdown})
	_, _ = c.stdin.Write(append(payload, '\n'))
	_ = c.stdin.Close()
	c.mu.Unlock()

	go c.drain()

	timer := time.NewTimer(c.grace)
	defer timer.Stop()
	select {
	case <-c.exited:
	case <-timer.C:
		logging.WarnWithContext(c.logger, "worker did not exit after shutdown; killing", "worker_kill",
			logging.String(logging.FieldImpact, "model resources released forcibly"),
			logging.Duration("grace_period", c.grace),
		)
		c.kill()
	}
	return nil
}

func (c *Client) kill() {
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	go c.drain()
	<-c.exited
}

func (c *Client) drain() {
	for range c.lines {
	}
}

func truncate(line []byte) string {
	const limit = 200
	if len(line) > limit {
		return string(line[:limit]) + "..."
	}
	return string(line)
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
