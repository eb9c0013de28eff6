package logger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// Publisher ships a batch of aggregated entries; *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

type CollectionConfig struct {
	TimeInterval   time.Duration // flush interval
	CountThreshold int           // unique entries before an early flush
	Topic          string
	Source         string // used as the message key
	Publisher      Publisher
}

type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector de-duplicates repeated warnings and errors and publishes them
// in batches.
type LogCollector struct {
	config *CollectionConfig
	logMap map[string]*AggregatedLogEntry
	mutex  sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	if config.TimeInterval <= 0 {
		config.TimeInterval = 30 * time.Second
	}
	if config.CountThreshold <= 0 {
		config.CountThreshold = 100
	}
	ctx, cancel := context.WithCancel(context.Background())

	collector := &LogCollector{
		config: config,
		logMap: make(map[string]*AggregatedLogEntry),
		ctx:    ctx,
		cancel: cancel,
	}

	collector.wg.Add(1)
	go collector.periodicFlush()

	return collector
}

func (d *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := d.generateKey(level, message, fields, caller)

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if entry, exists := d.logMap[key]; exists {
		entry.Count++
		entry.LastSeen = now
	} else {
		d.logMap[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	if len(d.logMap) >= d.config.CountThreshold {
		d.publish(d.drain())
	}
}

// Flush publishes whatever is pending and waits for the publish to finish.
func (d *LogCollector) Flush(ctx context.Context) error {
	d.mutex.Lock()
	logs := d.drain()
	d.mutex.Unlock()
	if len(logs) == 0 || d.config.Publisher == nil {
		return nil
	}
	return d.config.Publisher.Publish(ctx, d.config.Topic, []byte(d.config.Source), logs)
}

func (d *LogCollector) generateKey(level, message string, fields map[string]interface{}, caller string) string {
	data := struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
		Caller  string                 `json:"caller"`
	}{level, message, fields, caller}

	jsonData, _ := json.Marshal(data)
	return fmt.Sprintf("%x", sha256.Sum256(jsonData))
}

func (d *LogCollector) periodicFlush() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.mutex.Lock()
			logs := d.drain()
			d.mutex.Unlock()
			d.publish(logs)
		case <-d.ctx.Done():
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = d.Flush(ctx)
			cancel()
			return
		}
	}
}

// drain must be called with the mutex held.
func (d *LogCollector) drain() []AggregatedLogEntry {
	if len(d.logMap) == 0 {
		return nil
	}
	logs := make([]AggregatedLogEntry, 0, len(d.logMap))
	for _, entry := range d.logMap {
		logs = append(logs, *entry)
	}
	d.logMap = make(map[string]*AggregatedLogEntry)
	sort.Slice(logs, func(i, j int) bool { return logs[i].FirstSeen.Before(logs[j].FirstSeen) })
	return logs
}

func (d *LogCollector) publish(logs []AggregatedLogEntry) {
	if len(logs) == 0 || d.config.Publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := d.config.Publisher.Publish(ctx, d.config.Topic, []byte(d.config.Source), logs); err != nil {
			fmt.Fprintf(os.Stderr, "failed to send aggregated logs: %v\n", err)
		}
	}()
}

func (d *LogCollector) Close() {
	d.cancel()
	d.wg.Wait()
}
