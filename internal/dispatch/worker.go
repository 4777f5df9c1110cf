package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hermes-router/hermes/internal/clock"
	"github.com/hermes-router/hermes/internal/descriptor"
	"github.com/hermes-router/hermes/internal/errs"
	"github.com/hermes-router/hermes/internal/fsops"
	"github.com/hermes-router/hermes/internal/sink"
)

// exitReasons maps the external transfer tool's fixed exit-code contract
// (§6 "External transfer tool") to symbolic reasons, grounded on
// original_source/dispatch/send.py's DCMSEND_ERROR_CODES.
var exitReasons = map[int]string{
	1:  "SYNTAX",
	21: "NO_INPUT_FILES",
	22: "INVALID_INPUT",
	23: "NO_VALID_INPUT",
	43: "CANNOT_WRITE_REPORT",
	60: "CANNOT_INIT_NETWORK",
	61: "CANNOT_NEGOTIATE_ASSOC",
	62: "CANNOT_SEND_REQUEST",
	65: "CANNOT_ADD_PRES_CTX",
}

// statusReportName is the status-report file dcmsend-equivalent tools
// write inside the staged folder, mirroring send.py's "sent.txt" /
// +crf <path> convention.
const statusReportName = "sent.txt"

// Execute implements the transfer worker (component H, §4.7) for one
// job: compose and run the external transfer command, then drive the
// success/retry/quarantine outcome. Any panic-worthy condition is instead
// returned as an error so the pool's run loop can log and continue
// without losing the worker goroutine (§4.7 "any exception escaping the
// worker must be caught at the worker boundary").
func Execute(ctx context.Context, job Job, sk *sink.Sink, clk clock.Clock) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch: worker panic recovered", "folder", job.Folder, "panic", r)
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()

	cmd, cancel, err := buildCommand(ctx, job)
	if err != nil {
		return err
	}
	defer cancel()

	runErr := cmd.Run()
	if runErr == nil {
		return onSuccess(ctx, job, sk, clk)
	}
	return onFailure(ctx, job, sk, clk, runErr)
}

// buildCommand composes the external transfer invocation the way
// original_source/dispatch/send.py:_create_command builds the dcmsend
// call: target IP/port, -aet/-aec from sender/receiver AE titles, a file
// glob, and a status-report file inside the folder. Built field-by-field
// with exec.CommandContext (not a shell string), since folder and tag
// values are attacker-influenced series metadata that must never reach a
// shell interpolation.
func buildCommand(ctx context.Context, job Job) (*exec.Cmd, context.CancelFunc, error) {
	if job.TransferTool == "" {
		return nil, nil, errors.New("dispatch: no transfer_tool configured")
	}

	statusReport := filepath.Join(job.Folder, statusReportName)
	args := []string{
		job.Descriptor.TargetAddress,
		strconv.Itoa(job.Descriptor.TargetPort),
		"+sd", job.Folder,
		"-aet", job.Descriptor.TargetAETSource,
		"-aec", job.Descriptor.TargetAETTarget,
		"-nuc",
		"+sp", "*." + job.PayloadExt,
		"-to", strconv.Itoa(int(job.TransferTimeout.Seconds())),
		"+crf", statusReport,
	}

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if job.TransferTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, job.TransferTimeout)
	}

	cmd := exec.CommandContext(runCtx, job.TransferTool, args...)
	setupProcessGroup(cmd)
	return cmd, cancel, nil
}

// onSuccess implements §4.7 step 3: count payload files, emit DISPATCH,
// move the folder to success/ with collision-safe rename, and clear
// .SENDING implicitly via the move.
func onSuccess(ctx context.Context, job Job, sk *sink.Sink, clk clock.Clock) error {
	fileCount := countPayloadFiles(job.Folder, job.PayloadExt)

	slog.Info("folder successfully sent", "folder", job.Folder, "target", job.Descriptor.TargetName)
	sk.SendSeriesEvent(ctx, sink.SeriesDispatch, job.Descriptor.SeriesUID, fileCount, job.Descriptor.TargetName, "")

	dest, err := fsops.MoveCollisionSafe(job.Folder, job.SuccessFolder, clk.Now())
	if err != nil {
		return err
	}
	slog.Info("moved to success", "folder", dest)
	return nil
}

// onFailure implements §4.7 step 4: map the exit code to a symbolic
// reason, report it, bump the descriptor's retry state durably, and
// either clear .SENDING for a future retry or suspend the folder to
// error/ once retries are exhausted.
func onFailure(ctx context.Context, job Job, sk *sink.Sink, clk clock.Clock, runErr error) error {
	reason := "UNKNOWN"
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		if r, ok := exitReasons[exitErr.ExitCode()]; ok {
			reason = r
		}
	}

	slog.Error("transfer command failed", "folder", job.Folder, "reason", reason, "error", runErr)
	sk.SendEvent(ctx, sink.EventProcessing, sink.SeverityError,
		fmt.Sprintf("Error sending %s to %s", job.Descriptor.SeriesUID, job.Descriptor.TargetName))
	sk.SendSeriesEvent(ctx, sink.SeriesError, job.Descriptor.SeriesUID, 0, job.Descriptor.TargetName, reason)

	retries, exhausted, err := bumpRetry(job.Folder, job.RetryMax, job.RetryDelay, clk)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrTransferFailure, err)
	}

	if !exhausted {
		sendingPath := filepath.Join(job.Folder, sendingSentinel)
		if err := os.Remove(sendingPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("dispatch: remove sending sentinel", "path", sendingPath, "error", err)
		}
		slog.Info("transfer will be retried", "folder", job.Folder, "retries", retries)
		return nil
	}

	slog.Warn("max retries reached, suspending", "folder", job.Folder, "target", job.Descriptor.TargetName)
	sk.SendSeriesEvent(ctx, sink.SeriesSuspend, job.Descriptor.SeriesUID, 0, job.Descriptor.TargetName, "max retries reached")

	dest, err := fsops.MoveCollisionSafe(job.Folder, job.ErrorFolder, clk.Now())
	if err != nil {
		return err
	}
	sk.SendSeriesEvent(ctx, sink.SeriesMove, job.Descriptor.SeriesUID, 0, dest, "")
	sk.SendEvent(ctx, sink.EventProcessing, sink.SeverityError, "series suspended after reaching max retries")
	return nil
}

// bumpRetry atomically read-modify-writes the folder's task descriptor:
// retries += 1, next_retry_at := now + retryDelay (§4.7, invariant I4).
// The delay itself is computed with cenkalti/backoff/v4's ConstantBackOff,
// the fixed-delay policy spec.md mandates, rather than hand-rolled
// duration arithmetic.
func bumpRetry(folder string, retryMax int, retryDelay time.Duration, clk clock.Clock) (retries int, exhausted bool, err error) {
	path := descriptor.RoutePath(folder)
	d, err := descriptor.Read(path)
	if err != nil {
		return 0, false, err
	}

	bo := &backoff.ConstantBackOff{Interval: retryDelay}
	d.Retries++
	d.NextRetryAt = clk.Now().Add(bo.NextBackOff()).Unix()

	if err := descriptor.WriteAtomic(path, d); err != nil {
		return d.Retries, false, err
	}

	return d.Retries, d.Retries >= retryMax, nil
}

func countPayloadFiles(folder, payloadExt string) int {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return 0
	}
	suffix := "." + payloadExt
	count := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			count++
		}
	}
	return count
}
