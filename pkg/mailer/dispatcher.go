package mailer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrQueueFull is returned by Enqueue when the in-process buffer is saturated.
var ErrQueueFull = errors.New("mail queue full")

// ErrDispatcherClosed is returned by Enqueue after Stop.
var ErrDispatcherClosed = errors.New("mail dispatcher closed")

// Publisher hands a job to the transport (RabbitMQ in production).
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Dispatcher decouples request handlers from the mail transport: Enqueue
// never blocks, and a single goroutine drains the buffer into the Publisher.
type Dispatcher struct {
	pub            Publisher
	logger         logrus.FieldLogger
	jobs           chan EmailJob
	publishTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewDispatcher(pub Publisher, logger logrus.FieldLogger, size int) *Dispatcher {
	if size <= 0 {
		size = 64
	}
	return &Dispatcher{
		pub:            pub,
		logger:         logger,
		jobs:           make(chan EmailJob, size),
		publishTimeout: 5 * time.Second,
		done:           make(chan struct{}),
	}
}

// Enqueue buffers job for publishing.
func (d *Dispatcher) Enqueue(job EmailJob) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start runs the publish loop until ctx is cancelled or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	go func() {
		defer close(d.done)
		for {
			select {
			case <-ctx.Done():
				d.drain()
				return
			case job, ok := <-d.jobs:
				if !ok {
					return
				}
				d.publish(job)
			}
		}
	}()
}

// Stop rejects new jobs, flushes what is buffered and waits for the loop to exit.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case job, ok := <-d.jobs:
			if !ok {
				return
			}
			d.publish(job)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(job EmailJob) {
	ctx, cancel := context.WithTimeout(context.Background(), d.publishTimeout)
	defer cancel()
	if err := d.pub.PublishJSON(ctx, job); err != nil {
		d.logger.WithError(err).WithField("template", job.Template).Warn("email publish failed")
	}
}

// LogPublisher stands in for RabbitMQ when MAIL_SEND_ENABLED=false.
// It records that a job would have been sent without its body, which may contain reset links.
type LogPublisher struct {
	Logger logrus.FieldLogger
}

func (p LogPublisher) PublishJSON(_ context.Context, body any) error {
	fields := logrus.Fields{}
	if job, ok := body.(EmailJob); ok {
		fields["template"] = job.Template
	}
	p.Logger.WithFields(fields).Info("email sending disabled; job dropped")
	return nil
}
