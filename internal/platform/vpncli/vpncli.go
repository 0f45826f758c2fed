package vpncli

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Script options understood by the provisioning shell script.
const (
	optCreateClient = "1"
	optDeleteClient = "2"
	optListClients  = "3"
)

// Known header lines the script prints before the actual client names.
var listHeaders = []string{
	"OpenVPN client names:",
	"WireGuard/AmneziaWG client names:",
	"OpenVPN - List clients",
	"WireGuard/AmneziaWG - List clients",
}

// Runner shells out to the VPN provisioning script. The script is a black
// box: zero exit status means success, anything else is a failure.
type Runner struct {
	script  string
	timeout time.Duration
	days    string
}

func NewRunner(script string, timeout time.Duration, days string) *Runner {
	return &Runner{script: script, timeout: timeout, days: days}
}

type result struct {
	exitCode int
	stdout   string
	stderr   string
}

func (r *Runner) run(ctx context.Context, args ...string) (*result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.script, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return &result{
				exitCode: exitErr.ExitCode(),
				stdout:   stdout.String(),
				stderr:   stderr.String(),
			}, nil
		}
		return nil, err
	}
	return &result{exitCode: 0, stdout: stdout.String(), stderr: stderr.String()}, nil
}

// Create provisions a new VPN client.
func (r *Runner) Create(ctx context.Context, clientName string) error {
	res, err := r.run(ctx, optCreateClient, clientName, r.days)
	if err != nil {
		return fmt.Errorf("provision create %s: %w", clientName, err)
	}
	if res.exitCode != 0 {
		return fmt.Errorf("provision create %s: exit %d: %s", clientName, res.exitCode, strings.TrimSpace(res.stderr))
	}
	return nil
}

// Delete removes a VPN client. Deleting a client that does not exist is left
// to the script; callers treating revocation as idempotent should check List
// first.
func (r *Runner) Delete(ctx context.Context, clientName string) error {
	res, err := r.run(ctx, optDeleteClient, clientName)
	if err != nil {
		return fmt.Errorf("provision delete %s: %w", clientName, err)
	}
	if res.exitCode != 0 {
		return fmt.Errorf("provision delete %s: exit %d: %s", clientName, res.exitCode, strings.TrimSpace(res.stderr))
	}
	return nil
}

// List returns the provisioned client names, with the script's banner lines
// stripped.
func (r *Runner) List(ctx context.Context) ([]string, error) {
	res, err := r.run(ctx, optListClients)
	if err != nil {
		return nil, fmt.Errorf("provision list: %w", err)
	}
	if res.exitCode != 0 {
		return nil, fmt.Errorf("provision list: exit %d: %s", res.exitCode, strings.TrimSpace(res.stderr))
	}
	return ParseClientList(res.stdout), nil
}

// ParseClientList extracts client names from the script's list output.
func ParseClientList(out string) []string {
	var clients []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isListHeader(line) {
			continue
		}
		clients = append(clients, line)
	}
	return clients
}

func isListHeader(line string) bool {
	for _, h := range listHeaders {
		if strings.HasPrefix(line, h) {
			return true
		}
	}
	return false
}
