package pipeline

import (
	"time"

	"Foresight/internal/domain/models"
	"Foresight/internal/domain/service"
	applogger "Foresight/pkg/logger"
)

// dispatcher delivers progress events to an observer from its own goroutine
// through a bounded queue. The pipeline never waits on the observer: a full
// queue drops the event (terminal events evict the oldest instead) and a
// panicking observer is recovered.
type dispatcher struct {
	obs    service.ProgressObserver
	ch     chan models.ProgressEvent
	done   chan struct{}
	onDrop func()
	log    *applogger.Logger
}

func newDispatcher(obs service.ProgressObserver, buffer int, onDrop func(), l *applogger.Logger) *dispatcher {
	if obs == nil {
		return nil
	}
	if buffer < 1 {
		buffer = 1
	}
	d := &dispatcher{
		obs:    obs,
		ch:     make(chan models.ProgressEvent, buffer),
		done:   make(chan struct{}),
		onDrop: onDrop,
		log:    l,
	}
	go d.loop()
	return d
}

func (d *dispatcher) emit(ev models.ProgressEvent) {
	if d == nil {
		return
	}
	select {
	case d.ch <- ev:
		return
	default:
	}
	if !Stage(ev.Stage).Terminal() {
		d.drop(ev)
		return
	}
	// DONE and FAILED evict the oldest queued event instead of being dropped.
	for {
		select {
		case d.ch <- ev:
			return
		default:
		}
		select {
		case old := <-d.ch:
			d.drop(old)
		default:
		}
	}
}

func (d *dispatcher) drop(ev models.ProgressEvent) {
	if d.onDrop != nil {
		d.onDrop()
	}
	d.log.Debug("progress event dropped", applogger.String("stage", ev.Stage))
}

func (d *dispatcher) loop() {
	defer close(d.done)
	for ev := range d.ch {
		d.deliver(ev)
	}
}

func (d *dispatcher) deliver(ev models.ProgressEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Debug("progress observer panicked",
				applogger.String("stage", ev.Stage),
				applogger.Any("panic", r))
		}
	}()
	d.obs.OnProgress(ev)
}

// close stops accepting events. With a positive flush it also waits up to
// flush for queued events to be delivered.
func (d *dispatcher) close(flush time.Duration) {
	if d == nil {
		return
	}
	close(d.ch)
	if flush <= 0 {
		return
	}
	timer := time.NewTimer(flush)
	defer timer.Stop()
	select {
	case <-d.done:
	case <-timer.C:
	}
}

// Observers fans one event out to several observers; a panic in one does
// not stop the others.
func Observers(obs ...service.ProgressObserver) service.ProgressObserver {
	var list []service.ProgressObserver
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	return multiObserver(list)
}

type multiObserver []service.ProgressObserver

func (m multiObserver) OnProgress(ev models.ProgressEvent) {
	for _, o := range m {
		func() {
			defer func() { _ = recover() }()
			o.OnProgress(ev)
		}()
	}
}
