// Package transfer closes an upload sink at the point where the payload is
// fully received but the final status line has not been sent, so a relay
// failure is reported to the client as a transfer error.
package transfer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/apnarm/ftp2http/relay"
)

// State is the position of one data transfer in its lifecycle.
type State int

const (
	// Receiving accepts payload writes.
	Receiving State = iota
	// Finished means the payload is complete and the sink is being closed.
	Finished
	// Closed is terminal.
	Closed
)

func (s State) String() string {
	switch s {
	case Receiving:
		return "receiving"
	case Finished:
		return "transfer_finished"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Reply codes used for the final status line.
const (
	CodeTransferComplete = 226
	CodeTransferAborted  = 426
	CodeTransferFailed   = 550
)

// ErrNotReceiving is returned by Write once the transfer left Receiving.
var ErrNotReceiving = errors.New("transfer: not receiving")

// Sink is the upload a transfer writes into. *relay.Upload satisfies it.
type Sink interface {
	io.Writer
	CloseContext(ctx context.Context) error
	Discard() error
	Closed() bool
}

// Reply is the final status line the engine sends for a transfer.
type Reply struct {
	Code    int
	Message string
	// Err is the relay error behind a failure reply.
	Err error
}

// OK reports whether the reply acknowledges a completed transfer.
func (r Reply) OK() bool { return r.Code == CodeTransferComplete }

var completeReply = Reply{Code: CodeTransferComplete, Message: "Transfer complete."}

// Interceptor owns one transfer and its sink. It is safe for concurrent use;
// Finish and Abort race safely and only the first wins.
type Interceptor struct {
	sink   Sink
	logger *slog.Logger

	mu    sync.Mutex
	state State
	reply Reply
}

// New binds an interceptor to sink. A nil sink is allowed and turns Finish
// into a plain success.
func New(sink Sink, logger *slog.Logger) *Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interceptor{sink: sink, logger: logger, state: Receiving}
}

// State returns the current state.
func (i *Interceptor) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Write forwards p to the sink while the transfer is receiving.
func (i *Interceptor) Write(p []byte) (int, error) {
	i.mu.Lock()
	if i.state != Receiving {
		i.mu.Unlock()
		return 0, ErrNotReceiving
	}
	sink := i.sink
	i.mu.Unlock()

	if sink == nil {
		return len(p), nil
	}
	return sink.Write(p)
}

// Finish marks the payload complete, closes the sink synchronously and
// returns the reply to send. It runs the close at most once; later calls
// return the stored reply.
func (i *Interceptor) Finish(ctx context.Context) Reply {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state != Receiving {
		return i.reply
	}
	i.state = Finished

	reply := completeReply
	if i.sink != nil && !i.sink.Closed() {
		if err := i.sink.CloseContext(ctx); err != nil {
			reply = failureReply(err)
			i.logger.ErrorContext(ctx, reply.Message)
		}
	}

	i.reply = reply
	i.state = Closed
	return reply
}

// Abort ends a transfer that never finished. The sink is discarded without
// any relay. Abort after Finish is a no-op.
func (i *Interceptor) Abort(cause error) Reply {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state != Receiving {
		return i.reply
	}
	i.state = Closed

	if i.sink != nil {
		if err := i.sink.Discard(); err != nil {
			i.logger.Warn("discard aborted upload", slog.String("error", err.Error()))
		}
	}

	msg := "Connection closed; transfer aborted."
	if cause != nil {
		i.logger.Debug("transfer aborted", slog.String("cause", cause.Error()))
	}
	i.reply = Reply{Code: CodeTransferAborted, Message: msg, Err: cause}
	return i.reply
}

// Close is Abort without a cause.
func (i *Interceptor) Close() error {
	i.Abort(nil)
	return nil
}

func failureReply(err error) Reply {
	detail := err.Error()
	var unexpected *relay.UnexpectedHTTPResponse
	if errors.As(err, &unexpected) {
		detail = unexpected.Detail
	}
	return Reply{
		Code:    CodeTransferFailed,
		Message: "Error transferring to HTTP - " + detail,
		Err:     err,
	}
}
