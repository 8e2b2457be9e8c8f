package postgres

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/invsync/invsync/internal/constants"
	"github.com/lib/pq"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
)

// Waker is notified whenever another process enqueues a task.
type Waker interface {
	Wake()
}

// notificationSource is the subset of *pq.Listener the TaskListener uses.
type notificationSource interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// TaskListener LISTENs on the task enqueue channel and wakes the task runner
// so that tasks inserted by other instances are dispatched without waiting
// for the next pending sweep.
type TaskListener struct {
	source  notificationSource
	channel string
	waker   Waker
	logger  *slog.Logger

	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// NewTaskListener opens a dedicated pq listener connection for dsn.
func NewTaskListener(dsn string, waker Waker, logger *slog.Logger) (*TaskListener, error) {
	if dsn == "" {
		return nil, errors.New("listener dsn cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", constants.ComponentTaskListener)

	listener := pq.NewListener(dsn, listenerMinReconnect, listenerMaxReconnect,
		func(ev pq.ListenerEventType, err error) {
			switch ev {
			case pq.ListenerEventConnected:
				log.Info("connected to notification channel")
			case pq.ListenerEventDisconnected:
				log.Warn("disconnected from notification channel", "error", err)
			case pq.ListenerEventReconnected:
				log.Info("reconnected to notification channel")
			case pq.ListenerEventConnectionAttemptFailed:
				log.Warn("notification connection attempt failed", "error", err)
			}
		})

	return newTaskListener(listener, waker, log)
}

func newTaskListener(source notificationSource, waker Waker, logger *slog.Logger) (*TaskListener, error) {
	if waker == nil {
		return nil, errors.New("waker cannot be nil")
	}
	return &TaskListener{
		source:  source,
		channel: constants.NotifyChannelTaskEnqueued,
		waker:   waker,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start subscribes to the channel and begins forwarding notifications.
func (l *TaskListener) Start(ctx context.Context) error {
	if err := l.source.Listen(l.channel); err != nil {
		return err
	}

	l.startOnce.Do(func() {
		ctx, l.cancel = context.WithCancel(ctx)
		go l.run(ctx)
		l.logger.Info("task listener started", "channel", l.channel)
	})
	return nil
}

// Close stops the listener and releases its connection.
func (l *TaskListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.cancel != nil {
			l.cancel()
			<-l.done
		}
		err = l.source.Close()
		l.logger.Info("task listener stopped")
	})
	return err
}

func (l *TaskListener) run(ctx context.Context) {
	defer close(l.done)

	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	notifications := l.source.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			// pq sends nil after a reconnect; anything may have been missed.
			if n == nil {
				l.logger.Debug("listener reconnected, waking runner")
			} else {
				l.logger.Debug("task enqueued notification", "task_id", n.Extra)
			}
			l.waker.Wake()
		case <-ticker.C:
			if err := l.source.Ping(); err != nil {
				l.logger.Warn("listener ping failed", "error", err)
			}
		}
	}
}
