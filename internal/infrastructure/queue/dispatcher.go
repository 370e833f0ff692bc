package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agent007moss/MLT/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

var ErrQueueFull = errors.New("otp delivery queue full")

// Delivery results reported to an Observer.
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultDropped = "dropped"
)

// Observer is told about every delivery outcome and queue depth change.
type Observer interface {
	Delivered(result string)
	QueueDepth(worker, depth int)
}

type nopObserver struct{}

func (nopObserver) Delivered(string)    {}
func (nopObserver) QueueDepth(int, int) {}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver reports delivery outcomes to o.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observer = o
		}
	}
}

// Sender performs the actual out-of-band delivery of a code.
type Sender interface {
	Send(ctx context.Context, d ports.OTPDelivery) error
}

// Dispatcher routes OTP deliveries to a fixed set of workers sharded by user
// id, so a user's codes are sent in issue order and the newest arrives last.
type Dispatcher struct {
	workers []chan ports.OTPDelivery
	sender   Sender
	observer Observer
	log      zerolog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sender Sender, log zerolog.Logger, opts ...Option) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan ports.OTPDelivery, numWorkers),
		sender:   sender,
		observer: nopObserver{},
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.OTPDelivery, channelBuffer)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Notify enqueues a delivery without blocking the login request. It fails
// with ErrQueueFull when the user's shard is saturated.
func (d *Dispatcher) Notify(_ context.Context, delivery ports.OTPDelivery) error {
	idx := d.shardIndex(delivery.UserID)
	select {
	case d.workers[idx] <- delivery:
		d.observer.QueueDepth(idx, len(d.workers[idx]))
		return nil
	default:
		d.observer.Delivered(ResultDropped)
		return ErrQueueFull
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID int64) int {
	n := userID % int64(len(d.workers))
	if n < 0 {
		n = -n
	}
	return int(n)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.OTPDelivery) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-ch:
			if !ok {
				return
			}
			d.observer.QueueDepth(id, len(ch))
			if err := d.sender.Send(ctx, delivery); err != nil {
				d.observer.Delivered(ResultFailed)
				d.log.Error().Err(err).
					Int64("user_id", delivery.UserID).
					Int("worker_id", id).
					Msg("otp delivery failed")
				continue
			}
			d.observer.Delivered(ResultSent)
		}
	}
}

var _ ports.OTPNotifier = (*Dispatcher)(nil)
