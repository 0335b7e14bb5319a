package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	tpl "github.com/cozyapp/cozyapp-api/pkg/mailer/templates"
)

// Worker renders queued jobs and hands them to a Sender.
type Worker struct {
	Sender      Sender
	Logger      logrus.FieldLogger
	SendTimeout time.Duration
}

func NewWorker(sender Sender, logger logrus.FieldLogger) *Worker {
	return &Worker{Sender: sender, Logger: logger, SendTimeout: 15 * time.Second}
}

// Render fills Subject/Text/HTML from the job's template when it names one.
func Render(job *EmailJob) error {
	if job.Template == "" {
		return nil
	}
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
	s, t, h, err := tpl.Render(job.Template, job.Data)
	if err != nil {
		return err
	}
	if job.Subject == "" {
		job.Subject = s
	}
	job.Text, job.HTML = t, h
	return nil
}

// Handle processes one delivery: malformed or unrenderable jobs are dropped,
// send failures are requeued, successes are acked.
func (w *Worker) Handle(ctx context.Context, msg amqp.Delivery) {
	var job EmailJob
	if err := json.Unmarshal(msg.Body, &job); err != nil || !job.Valid() {
		w.Logger.WithError(err).Warn("bad email job")
		_ = msg.Nack(false, false)
		return
	}
	if err := Render(&job); err != nil {
		w.Logger.WithError(err).WithField("template", job.Template).Error("render email failed")
		_ = msg.Nack(false, false)
		return
	}

	c, cancel := context.WithTimeout(ctx, w.SendTimeout)
	defer cancel()
	if err := w.Sender.Send(c, job.To, job.Subject, job.Text, job.HTML); err != nil {
		w.Logger.WithError(err).WithField("template", job.Template).Warn("send email failed")
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}

// Consume handles deliveries until the channel closes or ctx is done.
func (w *Worker) Consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			w.Handle(ctx, msg)
		}
	}
}
