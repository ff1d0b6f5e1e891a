package metrics

import (
	"context"
	"time"

	"media-catalog/internal/logging"
)

var log = logging.Named("metrics")

// StatsProvider supplies catalog statistics to the Collector.
type StatsProvider interface {
	GetStats(ctx context.Context) (Stats, error)
}

// StatsProviderFunc adapts a function to the StatsProvider interface.
type StatsProviderFunc func(ctx context.Context) (Stats, error)

// GetStats calls f(ctx).
func (f StatsProviderFunc) GetStats(ctx context.Context) (Stats, error) {
	return f(ctx)
}

// DBMetricsUpdater refreshes connection and file size gauges.
type DBMetricsUpdater interface {
	UpdateDBMetrics()
}

// Stats holds the current catalog statistics
type Stats struct {
	PublicUsers   int
	PrivateUsers  int
	Items         int
	Collections   int
	DeletedItems  int
	KnownTagsUser int
	KnownTagsAnon int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	dbUpdater     DBMetricsUpdater
	interval      time.Duration
	timeout       time.Duration
	stopChan      chan struct{}
	doneChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		timeout:       30 * time.Second,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// SetDBMetricsUpdater registers a component refreshed on every collection.
func (c *Collector) SetDBMetricsUpdater(u DBMetricsUpdater) {
	c.dbUpdater = u
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection and waits for the loop to exit.
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.doneChan
}

func (c *Collector) collectLoop() {
	defer close(c.doneChan)

	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.dbUpdater != nil {
		c.dbUpdater.UpdateDBMetrics()
	}

	if c.statsProvider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	stats, err := c.statsProvider.GetStats(ctx)
	if err != nil {
		log.Warn("Failed to collect catalog stats: %v", err)
		return
	}

	Publish(stats)

	log.Debug("Metrics collected: items=%d, collections=%d, deleted=%d, known_tags=%d/%d",
		stats.Items, stats.Collections, stats.DeletedItems, stats.KnownTagsUser, stats.KnownTagsAnon)
}

// Publish writes stats into the catalog gauges.
func Publish(stats Stats) {
	CatalogUsersTotal.WithLabelValues("public").Set(float64(stats.PublicUsers))
	CatalogUsersTotal.WithLabelValues("private").Set(float64(stats.PrivateUsers))
	CatalogItemsTotal.WithLabelValues("item").Set(float64(stats.Items - stats.Collections))
	CatalogItemsTotal.WithLabelValues("collection").Set(float64(stats.Collections))
	CatalogItemsTotal.WithLabelValues("deleted").Set(float64(stats.DeletedItems))
	CatalogKnownTagsTotal.WithLabelValues("user").Set(float64(stats.KnownTagsUser))
	CatalogKnownTagsTotal.WithLabelValues("anon").Set(float64(stats.KnownTagsAnon))
}
